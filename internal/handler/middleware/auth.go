package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"cinema-booking/internal/handler/httperr"
	"cinema-booking/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthMiddleware struct {
	identity usecase.Identity
}

const (
	ctxUserIDKey   = "user_id"
	ctxUserNameKey = "user_name"
)

func NewAuthMiddleware(identity usecase.Identity) *AuthMiddleware {
	return &AuthMiddleware{
		identity: identity,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.identity.CurrentUser(bearerToken(c))
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			httperr.AbortWithError(c, http.StatusUnauthorized, err, "Authentication required", nil)
			return
		}

		c.Set(ctxUserIDKey, user.ID)
		c.Set(ctxUserNameKey, user.DisplayName)
		c.Set("jwt_claims", map[string]any{
			"user_id": user.ID.String(),
			"name":    user.DisplayName,
		})
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := userID.(uuid.UUID)
	return id, ok
}

func GetUserName(c *gin.Context) string {
	return c.GetString(ctxUserNameKey)
}
