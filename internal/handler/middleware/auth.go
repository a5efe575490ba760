package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "eventory/api/pkg/jwt"
	"eventory/api/pkg/response"
)

const (
	ContextKeyUserClaims = "user_claims"
	ContextKeyUserID     = "user_id"
)

// JWTAuth rejects requests without a valid access token.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		claims, userID, msg := authenticate(jwtManager, authHeader)
		if msg != "" {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// OptionalJWTAuth resolves the viewer when an Authorization header is sent and
// lets anonymous requests through. A header that is present but invalid is
// still rejected.
func OptionalJWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		claims, userID, msg := authenticate(jwtManager, authHeader)
		if msg != "" {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

func authenticate(jwtManager *jwtpkg.Manager, authHeader string) (*jwtpkg.Claims, int64, string) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, 0, "invalid authorization format"
	}

	claims, err := jwtManager.Validate(parts[1])
	if err != nil {
		return nil, 0, "invalid or expired token"
	}
	if claims.TokenType != jwtpkg.TokenTypeAccess {
		return nil, 0, "invalid token type"
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, 0, "invalid user id"
	}
	return claims, userID, ""
}

// UserID returns the authenticated user id, or false for an anonymous request.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
