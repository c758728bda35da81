// internal/handlers/plans.go
package handlers

import (
	"fmt"
	"net/http"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreatePlanRequest struct {
	Name    string              `json:"name" binding:"required,max=255"`
	Content *models.PlanContent `json:"content"`
}

type UpdatePlanRequest struct {
	Name    *string             `json:"name" binding:"omitnil,min=1,max=255"`
	Content *models.PlanContent `json:"content"`
}

// normalizeContent replaces missing lists with empty ones so clients always
// see arrays.
func normalizeContent(content *models.PlanContent) models.PlanContent {
	out := models.PlanContent{}
	if content != nil {
		out = *content
	}
	if out.BackgroundImages == nil {
		out.BackgroundImages = []models.BackgroundImage{}
	}
	if out.Points == nil {
		out.Points = []models.PlanPoint{}
	}
	for i := range out.Points {
		p := &out.Points[i]
		if p.Notes == nil {
			p.Notes = []string{}
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		if p.PartIDs == nil {
			p.PartIDs = []uint{}
		}
	}
	return out
}

func isPlanUser(db *gorm.DB, planID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.PlanUser{}).
		Where("plan_id = ? AND user_id = ?", planID, userID).
		Count(&count).Error
	return count > 0, err
}

func ListPlans(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans := []models.Plan{}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", c.GetUint("userID")).
			Order("updated_at DESC, id DESC").
			Find(&plans).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, plans)
	}
}

// ListAssignedPlans returns plans other users shared with the caller.
func ListAssignedPlans(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans := []models.Plan{}
		err := db.WithContext(c.Request.Context()).
			Joins("JOIN plan_users ON plan_users.plan_id = plans.id").
			Where("plan_users.user_id = ?", c.GetUint("userID")).
			Order("plans.updated_at DESC, plans.id DESC").
			Find(&plans).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, plans)
	}
}

// GetPlan is readable by the owner, root and assigned users.
func GetPlan(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadShared[models.Plan](c, db, "Plan", isPlanUser)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, plan)
	}
}

func CreatePlan(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePlanRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}

		plan := models.Plan{
			Name:    req.Name,
			UserID:  c.GetUint("userID"),
			Content: datatypes.NewJSONType(normalizeContent(req.Content)),
		}
		if err := db.WithContext(c.Request.Context()).Create(&plan).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusCreated, plan)
	}
}

// UpdatePlan replaces the name and/or the whole content document.
func UpdatePlan(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadOwned[models.Plan](c, db, "Plan")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdatePlanRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Content != nil {
			updates["content"] = datatypes.NewJSONType(normalizeContent(req.Content))
		}

		if err := applyUpdates(c.Request.Context(), db, plan, plan.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, plan)
	}
}

// DeletePlan detaches referencing tasks and drops all grants before removing
// the plan, atomically.
func DeletePlan(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadOwned[models.Plan](c, db, "Plan")
		if err != nil {
			respondError(c, err)
			return
		}

		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Task{}).Where("plan_id = ?", plan.ID).
				Update("plan_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("plan_id = ?", plan.ID).Delete(&models.PlanUser{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Notification{}).Where("related_plan_id = ?", plan.ID).
				Update("related_plan_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Plan{}, plan.ID).Error
		})
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Plan deleted"})
	}
}

func planUsers(db *gorm.DB, planID uint) ([]models.PlanUser, error) {
	users := []models.PlanUser{}
	err := db.Preload("User").
		Where("plan_id = ?", planID).
		Order("created_at, user_id").
		Find(&users).Error
	return users, err
}

func ListPlanUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadShared[models.Plan](c, db, "Plan", isPlanUser)
		if err != nil {
			respondError(c, err)
			return
		}

		users, err := planUsers(db.WithContext(c.Request.Context()), plan.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

// AssignPlanUsers shares the plan. Existing grants and the owner are skipped.
func AssignPlanUsers(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadOwned[models.Plan](c, db, "Plan")
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
				if userID == plan.UserID {
					continue
				}

				grant := models.PlanUser{PlanID: plan.ID, UserID: userID, AssignedBy: assignedBy}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					continue
				}

				planID := plan.ID
				notification := models.Notification{
					UserID:        userID,
					Title:         "Plan shared with you",
					Message:       fmt.Sprintf("You now have access to plan %q", plan.Name),
					Type:          models.NotificationInfo,
					RelatedPlanID: &planID,
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

		users, err := planUsers(db.WithContext(ctx), plan.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

func UnassignPlanUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := loadOwned[models.Plan](c, db, "Plan")
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
			Where("plan_id = ? AND user_id = ?", plan.ID, userID).
			Delete(&models.PlanUser{})
		if res.Error != nil {
			respondError(c, apperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, apperr.NotFound("Plan user not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User removed from plan"})
	}
}
