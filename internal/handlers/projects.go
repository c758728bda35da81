// internal/handlers/projects.go
package handlers

import (
	"net/http"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"max=32"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitnil,min=1,max=255"`
	Description *string `json:"description"`
	Color       *string `json:"color" binding:"omitnil,max=32"`
}

func ListProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projects := []models.Project{}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", c.GetUint("userID")).
			Order("created_at DESC, id DESC").
			Find(&projects).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, projects)
	}
}

func GetProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := loadOwned[models.Project](c, db, "Project")
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

func CreateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProjectRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}

		project := models.Project{
			Name:        req.Name,
			Description: req.Description,
			Color:       req.Color,
			UserID:      c.GetUint("userID"),
		}
		if err := db.WithContext(c.Request.Context()).Create(&project).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusCreated, project)
	}
}

func UpdateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := loadOwned[models.Project](c, db, "Project")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateProjectRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Color != nil {
			updates["color"] = *req.Color
		}

		if err := applyUpdates(c.Request.Context(), db, project, project.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

// DeleteProject detaches the project's tasks and reports before removing it.
func DeleteProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := loadOwned[models.Project](c, db, "Project")
		if err != nil {
			respondError(c, err)
			return
		}

		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Task{}).Where("project_id = ?", project.ID).
				Update("project_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Report{}).Where("project_id = ?", project.ID).
				Update("project_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Project{}, project.ID).Error
		})
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted"})
	}
}
