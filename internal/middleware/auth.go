// internal/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/logs"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a live session and stores the
// session's user id under "userID".
func AuthMiddleware(sessions *auth.SessionManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), token)
		if errors.Is(err, auth.ErrInvalidSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}
		if err != nil {
			logs.Log.WithError(err).WithField("path", c.Request.URL.Path).Error("Failed to resolve session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		c.Set("userID", session.UserID)
		c.Set("sessionID", session.ID)
		c.Next()
	}
}

// RequireRoot limits a route to the root account.
func RequireRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsRoot(c.GetUint("userID")) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
			return
		}
		c.Next()
	}
}
