// internal/handlers/tasks.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	ProjectID   *uint      `json:"projectId"`
	PlanID      *uint      `json:"planId"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in-progress in_progress completed"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   bool       `json:"completed"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitnil,min=1,max=255"`
	Description *string    `json:"description"`
	ProjectID   *uint      `json:"projectId"`
	PlanID      *uint      `json:"planId"`
	Status      *string    `json:"status" binding:"omitnil,oneof=pending in-progress in_progress completed"`
	Priority    *string    `json:"priority" binding:"omitnil,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *bool      `json:"completed"`
}

// taskStatus keeps status and the completed flag consistent. A completed
// status wins over an explicit completed=false.
func taskStatus(current string, status *string, completed *bool) (string, bool) {
	if status != nil {
		s := models.NormalizeTaskStatus(*status)
		done := s == models.TaskStatusCompleted || (completed != nil && *completed)
		if done {
			s = models.TaskStatusCompleted
		}
		return s, done
	}
	if completed != nil && *completed {
		return models.TaskStatusCompleted, true
	}
	if current == models.TaskStatusCompleted {
		return models.TaskStatusPending, false
	}
	return current, false
}

func ListTasks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Where("user_id = ?", c.GetUint("userID"))

		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", models.NormalizeTaskStatus(status))
		}
		if projectID := c.Query("projectId"); projectID != "" {
			id, err := strconv.ParseUint(projectID, 10, 64)
			if err != nil {
				respondError(c, apperr.Validation("Invalid filter", map[string]string{"projectId": "must be a positive integer"}))
				return
			}
			query = query.Where("project_id = ?", id)
		}

		tasks := []models.Task{}
		if err := query.Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, tasks)
	}
}

func GetTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadOwned[models.Task](c, db, "Task")
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func CreateTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTaskRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Project](c, db, req.ProjectID, "projectId", "project"); err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Plan](c, db, req.PlanID, "planId", "plan"); err != nil {
			respondError(c, err)
			return
		}

		status := models.TaskStatusPending
		if req.Status != "" {
			status = req.Status
		}
		status, completed := taskStatus(models.TaskStatusPending, &status, &req.Completed)

		priority := req.Priority
		if priority == "" {
			priority = "medium"
		}

		task := models.Task{
			Title:       req.Title,
			Description: req.Description,
			UserID:      c.GetUint("userID"),
			ProjectID:   req.ProjectID,
			PlanID:      req.PlanID,
			Status:      status,
			Priority:    priority,
			DueDate:     utcPtr(req.DueDate),
			Completed:   completed,
		}
		if err := db.WithContext(c.Request.Context()).Create(&task).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusCreated, task)
	}
}

// UpdateTask merges the supplied fields. Owner and user id are not part of
// the payload and cannot change.
func UpdateTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadOwned[models.Task](c, db, "Task")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateTaskRequest
		nulls, err := bindPatch(c, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Project](c, db, req.ProjectID, "projectId", "project"); err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Plan](c, db, req.PlanID, "planId", "plan"); err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			updates["title"] = *req.Title
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Priority != nil {
			updates["priority"] = *req.Priority
		}
		if req.Status != nil || req.Completed != nil {
			status, completed := taskStatus(task.Status, req.Status, req.Completed)
			updates["status"] = status
			updates["completed"] = completed
		}
		setOptional(updates, "project_id", req.ProjectID, nulls["projectId"])
		setOptional(updates, "plan_id", req.PlanID, nulls["planId"])
		setOptional(updates, "due_date", utcPtr(req.DueDate), nulls["dueDate"])

		if err := applyUpdates(c.Request.Context(), db, task, task.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

// DeleteTask removes the task with its assignments and reminders in one
// transaction.
func DeleteTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := loadOwned[models.Task](c, db, "Task")
		if err != nil {
			respondError(c, err)
			return
		}

		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id = ?", task.ID).Delete(&models.Reminder{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Notification{}).Where("related_task_id = ?", task.ID).
				Update("related_task_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Task{}, task.ID).Error
		})
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
	}
}
