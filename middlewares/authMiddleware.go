package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cityconnect-be/models"
)

const (
	// AuthCookie carries the session token for browser clients.
	AuthCookie = "auth_token"

	ContextUserID = "user_id"
	ContextToken  = "token"
)

// SessionResolver resolves a session token to its identity. A nil identity
// means the token is absent, invalid or revoked.
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.Identity, error)
}

// TokenFromRequest returns the Bearer token, falling back to the auth
// cookie.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return strings.TrimSpace(header)
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware rejects requests without a live session and stores the
// user id and token in the context.
func AuthMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "No authorization token provided"})
			return
		}

		identity, err := sessions.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to verify session"})
			return
		}
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid authorization token"})
			return
		}

		c.Set(ContextUserID, identity.ID)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
