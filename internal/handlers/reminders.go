// internal/handlers/reminders.go
package handlers

import (
	"net/http"
	"time"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateReminderRequest struct {
	TaskID       uint      `json:"taskId" binding:"required"`
	ReminderDate time.Time `json:"reminderDate" binding:"required"`
	ReminderType string    `json:"reminderType" binding:"omitempty,oneof=email notification both"`
	Message      string    `json:"message"`
}

type UpdateReminderRequest struct {
	ReminderDate *time.Time `json:"reminderDate"`
	ReminderType *string    `json:"reminderType" binding:"omitnil,oneof=email notification both"`
	Message      *string    `json:"message"`
	Sent         *bool      `json:"sent"`
}

func reminderEvent(action string, data interface{}) realtime.Event {
	return realtime.Event{Type: realtime.TypeReminder, Action: action, Data: data}
}

// canSeeTask allows the task owner, root and assignees.
func canSeeTask(db *gorm.DB, task *models.Task, userID uint) (bool, error) {
	if auth.CanAccess(task.UserID, userID) {
		return true, nil
	}
	return isTaskAssignee(db, task.ID, userID)
}

func ListReminders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reminders := []models.Reminder{}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", c.GetUint("userID")).
			Order("reminder_date, id").
			Find(&reminders).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, reminders)
	}
}

// ListTaskReminders returns the caller's reminders for a task they can see.
// Root sees every reminder on the task.
func ListTaskReminders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadShared[models.Task](c, db, "Task", isTaskAssignee)
		if err != nil {
			respondError(c, err)
			return
		}
		userID := c.GetUint("userID")

		query := db.WithContext(c.Request.Context()).Where("task_id = ?", task.ID)
		if !auth.IsRoot(userID) {
			query = query.Where("user_id = ?", userID)
		}

		reminders := []models.Reminder{}
		if err := query.Order("reminder_date, id").Find(&reminders).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, reminders)
	}
}

func CreateReminder(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReminderRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		userID := c.GetUint("userID")

		var task models.Task
		if err := db.WithContext(ctx).First(&task, req.TaskID).Error; err != nil {
			respondError(c, dbError(err, "Task not found"))
			return
		}
		visible, err := canSeeTask(db.WithContext(ctx), &task, userID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if !visible {
			respondError(c, apperr.Forbidden("Access denied"))
			return
		}

		reminderType := req.ReminderType
		if reminderType == "" {
			reminderType = models.ReminderTypeNotification
		}

		reminder := models.Reminder{
			TaskID:       task.ID,
			UserID:       userID,
			ReminderDate: req.ReminderDate.UTC(),
			ReminderType: reminderType,
			Message:      req.Message,
		}
		if err := db.WithContext(ctx).Create(&reminder).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		hub.SendToUser(reminder.UserID, reminderEvent(realtime.ActionCreate, reminder))

		c.JSON(http.StatusCreated, reminder)
	}
}

// UpdateReminder re-arms a reminder whose date moves, unless the client sets
// sent explicitly.
func UpdateReminder(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		reminder, err := loadOwned[models.Reminder](c, db, "Reminder")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateReminderRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{}
		if req.ReminderDate != nil {
			updates["reminder_date"] = req.ReminderDate.UTC()
			if !req.ReminderDate.Equal(reminder.ReminderDate) {
				updates["sent"] = false
			}
		}
		if req.ReminderType != nil {
			updates["reminder_type"] = *req.ReminderType
		}
		if req.Message != nil {
			updates["message"] = *req.Message
		}
		if req.Sent != nil {
			updates["sent"] = *req.Sent
		}

		if err := applyUpdates(c.Request.Context(), db, reminder, reminder.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}
		hub.SendToUser(reminder.UserID, reminderEvent(realtime.ActionUpdate, reminder))

		c.JSON(http.StatusOK, reminder)
	}
}

func DeleteReminder(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		reminder, err := loadOwned[models.Reminder](c, db, "Reminder")
		if err != nil {
			respondError(c, err)
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&models.Reminder{}, reminder.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		hub.SendToUser(reminder.UserID, reminderEvent(realtime.ActionDelete, gin.H{"id": reminder.ID}))

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reminder deleted"})
	}
}
