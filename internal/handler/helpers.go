package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventory/api/internal/handler/middleware"
	"eventory/api/internal/service"
	"eventory/api/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

// currentUserID is for routes behind JWTAuth.
func currentUserID(c *gin.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, ErrNoClaims
	}
	return id, nil
}

// viewerID is 0 for anonymous requests on routes behind OptionalJWTAuth.
func viewerID(c *gin.Context) int64 {
	id, _ := middleware.UserID(c)
	return id
}

// pathID parses a positive integer path parameter. On failure it has already
// written the 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter.
func queryID(c *gin.Context, name string) (*int64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// writeError maps a service error kind to its status. Anything without a kind
// is an internal failure: it is logged and answered with a generic message.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, err.Error())
	default:
		_ = c.Error(err)
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c, http.StatusText(http.StatusInternalServerError))
	}
}

func bindError(c *gin.Context, err error) {
	response.BadRequest(c, "invalid request: "+err.Error())
}
