package middlewares

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"cityconnect-be/models"
	"cityconnect-be/services"
)

const ContextUser = "user"

// ProfileReader reads user profiles.
type ProfileReader interface {
	GetUserProfile(ctx context.Context, userID string) services.Envelope[*models.User]
}

// RequireRole lets the request through only when the authenticated user's
// profile has one of roles. It must run after AuthMiddleware.
func RequireRole(profiles ProfileReader, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := profiles.GetUserProfile(c.Request.Context(), UserID(c))
		if !res.Success {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "User profile not found"})
			return
		}
		if !slices.Contains(roles, res.Data.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "You are not authorized to perform this action"})
			return
		}

		c.Set(ContextUser, res.Data)
		c.Next()
	}
}
