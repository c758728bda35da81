// internal/handlers/notifications.go
package handlers

import (
	"net/http"
	"strconv"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateNotificationRequest struct {
	UserID        uint   `json:"userId"`
	Title         string `json:"title" binding:"required,max=255"`
	Message       string `json:"message"`
	Type          string `json:"type" binding:"omitempty,oneof=info success warning error"`
	RelatedTaskID *uint  `json:"relatedTaskId"`
	RelatedPlanID *uint  `json:"relatedPlanId"`
}

func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil || limit < 1 || limit > 500 {
			respondError(c, apperr.Validation("Invalid limit", map[string]string{"limit": "must be between 1 and 500"}))
			return
		}

		notifications := []models.Notification{}
		err = db.WithContext(c.Request.Context()).
			Where("user_id = ?", c.GetUint("userID")).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&notifications).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, notifications)
	}
}

func ListUnreadNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifications := []models.Notification{}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND is_read = ?", c.GetUint("userID"), false).
			Order("created_at DESC, id DESC").
			Find(&notifications).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// CreateNotification notifies userId, or the caller when it is omitted, and
// pushes the notification to the recipient's live connections.
func CreateNotification(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateNotificationRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		recipient := req.UserID
		if recipient == 0 {
			recipient = c.GetUint("userID")
		} else if err := requireUsers(db.WithContext(ctx), []uint{recipient}); err != nil {
			if apperr.From(err).Kind == apperr.KindValidation {
				err = apperr.Validation("Validation failed", map[string]string{"userId": "unknown user"})
			}
			respondError(c, err)
			return
		}

		notificationType := req.Type
		if notificationType == "" {
			notificationType = models.NotificationInfo
		}

		notification := models.Notification{
			UserID:        recipient,
			Title:         req.Title,
			Message:       req.Message,
			Type:          notificationType,
			RelatedTaskID: req.RelatedTaskID,
			RelatedPlanID: req.RelatedPlanID,
		}
		if err := db.WithContext(ctx).Create(&notification).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		pushNotifications(hub, []models.Notification{notification})

		c.JSON(http.StatusCreated, notification)
	}
}

func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notification, err := loadOwned[models.Notification](c, db, "Notification")
		if err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{"is_read": true}
		if err := applyUpdates(c.Request.Context(), db, notification, notification.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, notification)
	}
}

// MarkAllNotificationsRead only touches the caller's notifications.
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := db.WithContext(c.Request.Context()).
			Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", c.GetUint("userID"), false).
			Updates(map[string]interface{}{"is_read": true, "updated_at": nowUTC()})
		if res.Error != nil {
			respondError(c, apperr.Internal(res.Error))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "updated": res.RowsAffected})
	}
}

func DeleteNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notification, err := loadOwned[models.Notification](c, db, "Notification")
		if err != nil {
			respondError(c, err)
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&models.Notification{}, notification.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification deleted"})
	}
}
