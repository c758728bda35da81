// internal/handlers/assignments.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignUsersRequest struct {
	UserIDs []uint `json:"userIds" binding:"required,min=1,dive,gt=0"`
}

type UpdateAssignmentStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=pending in-progress in_progress completed"`
	Notes  *string `json:"notes"`
}

// isTaskAssignee reports whether userID holds an assignment on taskID.
func isTaskAssignee(db *gorm.DB, taskID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.TaskAssignment{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error
	return count > 0, err
}

// requireUsers fails validation unless every id names an existing user.
func requireUsers(db *gorm.DB, ids []uint) error {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var count int64
	if err := db.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if int(count) != len(unique) {
		return apperr.Validation("Validation failed", map[string]string{"userIds": "contains unknown users"})
	}
	return nil
}

// pushNotifications sends freshly committed notifications to their recipients.
func pushNotifications(hub realtime.Publisher, notifications []models.Notification) {
	for _, n := range notifications {
		hub.SendToUser(n.UserID, realtime.Event{
			Type:   realtime.TypeNotification,
			Action: realtime.ActionCreate,
			Data:   n,
		})
	}
}

// AssignUsersToTask adds assignees to a task. Repeating an assignment is a
// no-op, and the owner is never assigned to their own task.
func AssignUsersToTask(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadOwned[models.Task](c, db, "Task")
		if err != nil {
			respondError(c, err)
			return
		}

		var req AssignUsersRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		if err := requireUsers(db.WithContext(ctx), req.UserIDs); err != nil {
			respondError(c, err)
			return
		}

		assignedBy := c.GetUint("userID")
		var created []models.Notification
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, userID := range req.UserIDs {
				if userID == task.UserID {
					continue
				}

				assignment := models.TaskAssignment{
					TaskID:     task.ID,
					UserID:     userID,
					Status:     models.AssignmentStatusPending,
					AssignedBy: assignedBy,
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					continue
				}

				taskID := task.ID
				notification := models.Notification{
					UserID:        userID,
					Title:         "New task assigned",
					Message:       fmt.Sprintf("You have been assigned to task %q", task.Title),
					Type:          models.NotificationInfo,
					RelatedTaskID: &taskID,
				}
				if err := tx.Create(&notification).Error; err != nil {
					return err
				}
				created = append(created, notification)
			}
			return nil
		})
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		pushNotifications(hub, created)

		assignments, err := taskAssignments(db.WithContext(ctx), task.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, assignments)
	}
}

func taskAssignments(db *gorm.DB, taskID uint) ([]models.TaskAssignment, error) {
	assignments := []models.TaskAssignment{}
	err := db.Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at, user_id").
		Find(&assignments).Error
	return assignments, err
}

// ListTaskAssignments is visible to the owner, root and the assignees.
func ListTaskAssignments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadShared[models.Task](c, db, "Task", isTaskAssignee)
		if err != nil {
			respondError(c, err)
			return
		}

		assignments, err := taskAssignments(db.WithContext(c.Request.Context()), task.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, assignments)
	}
}

func UnassignUserFromTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadOwned[models.Task](c, db, "Task")
		if err != nil {
			respondError(c, err)
			return
		}
		userID, err := parseID(c, "userId")
		if err != nil {
			respondError(c, err)
			return
		}

		res := db.WithContext(c.Request.Context()).
			Where("task_id = ? AND user_id = ?", task.ID, userID).
			Delete(&models.TaskAssignment{})
		if res.Error != nil {
			respondError(c, apperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, apperr.NotFound("Assignment not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User unassigned"})
	}
}

// UpdateAssignmentStatus lets an assignee move their own assignment. It never
// creates an assignment and never touches the task itself.
func UpdateAssignmentStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := parseID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateAssignmentStatusRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		var task models.Task
		if err := db.WithContext(ctx).First(&task, taskID).Error; err != nil {
			respondError(c, dbError(err, "Task not found"))
			return
		}

		var assignment models.TaskAssignment
		err = db.WithContext(ctx).
			Where("task_id = ? AND user_id = ?", task.ID, c.GetUint("userID")).
			First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.Forbidden("You are not assigned to this task"))
			return
		}
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		status := models.NormalizeTaskStatus(req.Status)
		updates := map[string]interface{}{"status": status}
		if status == models.AssignmentStatusCompleted {
			if assignment.CompletedAt == nil {
				updates["completed_at"] = nowUTC()
			}
		} else {
			updates["completed_at"] = nil
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}

		if err := applyUpdates(ctx, db, &assignment, assignment.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, assignment)
	}
}

// ListAssignedTasks returns the caller's assignments with their tasks.
func ListAssignedTasks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		assignments := []models.TaskAssignment{}
		err := db.WithContext(c.Request.Context()).
			Preload("Task").
			Where("user_id = ?", c.GetUint("userID")).
			Order("created_at DESC").
			Find(&assignments).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, assignments)
	}
}
