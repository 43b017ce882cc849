package api

import (
	"net/http"
	"strconv"

	"github.com/AP5B/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by authMiddleware.
const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

const (
	roleStudent = models.RoleStudent
	roleTeacher = models.RoleTeacher
	roleAdmin   = models.RoleAdmin
)

// authMiddleware resolves the authenticated identity from the headers the
// edge proxy injects after validating the session. Requests arriving without
// them never passed the edge.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		role := c.GetHeader("X-User-Role")
		switch role {
		case roleStudent, roleTeacher, roleAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// requireRole gates a route to one role. Admins pass everywhere.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := c.GetString(ctxRole)
		if current != role && current != roleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
