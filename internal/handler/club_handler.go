package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/pkg/response"
)

type ClubHandler struct {
	clubService service.ClubService
	logger      *zap.Logger
}

func NewClubHandler(clubService service.ClubService, logger *zap.Logger) *ClubHandler {
	return &ClubHandler{clubService: clubService, logger: logger}
}

type CreateClubRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description"`
	MaxPeople   int    `json:"maxPeople" binding:"required,min=2"`
}

type ChangeHostRequest struct {
	UserID int64 `json:"userId" binding:"required,min=1"`
}

type ResolveJoinRequestRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *ClubHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	club, err := h.clubService.CreateClub(c.Request.Context(), service.CreateClubInput{
		Name:        req.Name,
		Description: req.Description,
		MaxPeople:   req.MaxPeople,
		HostID:      userID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, club)
}

func (h *ClubHandler) List(c *gin.Context) {
	hostID, ok := queryID(c, "hostId")
	if !ok {
		return
	}

	clubs, err := h.clubService.ListClubs(c.Request.Context(), repository.ClubFilter{
		HostID: hostID,
		Name:   c.Query("name"),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, clubs)
}

func (h *ClubHandler) Get(c *gin.Context) {
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}

	club, err := h.clubService.GetClub(c.Request.Context(), clubID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, club)
}

func (h *ClubHandler) Update(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}
	var req service.UpdateClubInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	club, err := h.clubService.UpdateClub(c.Request.Context(), clubID, req, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, club)
}

func (h *ClubHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}

	if err := h.clubService.DeleteClub(c.Request.Context(), clubID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *ClubHandler) Leave(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}

	if err := h.clubService.LeaveClub(c.Request.Context(), clubID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *ClubHandler) ChangeHost(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}
	var req ChangeHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	club, err := h.clubService.ChangeHost(c.Request.Context(), clubID, req.UserID, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, club)
}

func (h *ClubHandler) RequestJoin(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}

	req, err := h.clubService.RequestJoin(c.Request.Context(), clubID, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Created(c, req)
}

func (h *ClubHandler) ListJoinRequests(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}

	rows, err := h.clubService.ListJoinRequests(c.Request.Context(), clubID, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, rows)
}

func (h *ClubHandler) ResolveJoinRequest(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Unauthorized(c, "missing authentication")
		return
	}
	clubID, ok := pathID(c, "clubId")
	if !ok {
		return
	}
	requestID, ok := pathID(c, "requestId")
	if !ok {
		return
	}
	var req ResolveJoinRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	action, err := service.ParseJoinAction(req.Action)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.clubService.ResolveJoinRequest(c.Request.Context(), clubID, requestID, action, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{"request_id": requestID, "action": action})
}
