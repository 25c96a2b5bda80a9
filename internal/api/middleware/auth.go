package middleware

import (
	"log/slog"
	"net/http"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	// TokenHeader carries the user token on every API call
	TokenHeader = "Token"
	// UserIDKey is the gin context key holding the resolved user id
	UserIDKey = "user_id"
)

type AuthMiddleware struct {
	auth services.Authenticator
}

func NewAuthMiddleware(auth services.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Token header is required",
			})
			return
		}

		userID, err := am.auth.ResolveUser(c.Request.Context(), token)
		if err != nil {
			slog.Debug("Rejected API token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "Invalid token",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
