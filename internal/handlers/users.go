// internal/handlers/users.go
package handlers

import (
	"net/http"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListUsers returns every user. Passwords never serialize.
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.WithContext(c.Request.Context()).Order("id").Find(&users).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

// GetDashboardStats counts the caller's tasks. The four counts run as
// separate queries and are not a single snapshot.
func GetDashboardStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")
		tasks := func() *gorm.DB {
			return db.WithContext(c.Request.Context()).Model(&models.Task{}).Where("user_id = ?", userID)
		}

		var total, completed, pending, overdue int64
		if err := tasks().Count(&total).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if err := tasks().Where("completed = ?", true).Count(&completed).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if err := tasks().Where("completed = ?", false).Count(&pending).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		err := tasks().
			Where("completed = ? AND due_date IS NOT NULL AND due_date < ?", false, nowUTC()).
			Count(&overdue).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total":     total,
			"completed": completed,
			"pending":   pending,
			"overdue":   overdue,
		})
	}
}
