// internal/handlers/reports.go
package handlers

import (
	"net/http"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/logs"
	"ermakplan-back/internal/models"
	"ermakplan-back/pkg/email"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateReportRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description"`
	Location    string   `json:"location" binding:"max=255"`
	ReportType  string   `json:"reportType" binding:"max=64"`
	Status      string   `json:"status" binding:"omitempty,oneof=draft pending rejected"`
	ProjectID   *uint    `json:"projectId"`
	Attachments []string `json:"attachments"`
}

type UpdateReportRequest struct {
	Title       *string   `json:"title" binding:"omitnil,min=1,max=255"`
	Description *string   `json:"description"`
	Location    *string   `json:"location" binding:"omitnil,max=255"`
	ReportType  *string   `json:"reportType" binding:"omitnil,max=64"`
	Status      *string   `json:"status" binding:"omitnil,oneof=draft pending rejected"`
	ProjectID   *uint     `json:"projectId"`
	Attachments *[]string `json:"attachments"`
}

type SendReportRequest struct {
	EmailTo string `json:"emailTo" binding:"required,contains=@"`
}

func ListReports(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Where("user_id = ?", c.GetUint("userID"))
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		reports := []models.Report{}
		if err := query.Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, reports)
	}
}

func GetReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.Report](c, db, "Report")
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

func CreateReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReportRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Project](c, db, req.ProjectID, "projectId", "project"); err != nil {
			respondError(c, err)
			return
		}

		status := req.Status
		if status == "" {
			status = models.ReportStatusDraft
		}
		attachments := req.Attachments
		if attachments == nil {
			attachments = []string{}
		}

		report := models.Report{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			ReportType:  req.ReportType,
			Status:      status,
			ProjectID:   req.ProjectID,
			Attachments: datatypes.JSONSlice[string](attachments),
			UserID:      c.GetUint("userID"),
		}
		if err := db.WithContext(c.Request.Context()).Create(&report).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusCreated, report)
	}
}

// UpdateReport cannot mark a report sent; only SendReport does that.
func UpdateReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.Report](c, db, "Report")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateReportRequest
		nulls, err := bindPatch(c, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := checkReference[models.Project](c, db, req.ProjectID, "projectId", "project"); err != nil {
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
		if req.Location != nil {
			updates["location"] = *req.Location
		}
		if req.ReportType != nil {
			updates["report_type"] = *req.ReportType
		}
		if req.Status != nil {
			updates["status"] = *req.Status
		}
		if req.Attachments != nil {
			updates["attachments"] = datatypes.JSONSlice[string](*req.Attachments)
		}
		setOptional(updates, "project_id", req.ProjectID, nulls["projectId"])

		if err := applyUpdates(c.Request.Context(), db, report, report.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

func DeleteReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.Report](c, db, "Report")
		if err != nil {
			respondError(c, err)
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&models.Report{}, report.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report deleted"})
	}
}

// SendReport mails the report and marks it sent. A mail failure leaves the
// report untouched.
func SendReport(db *gorm.DB, mailer email.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.Report](c, db, "Report")
		if err != nil {
			respondError(c, err)
			return
		}

		var req SendReportRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		var author models.User
		if err := db.WithContext(ctx).First(&author, report.UserID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		err = mailer.SendReport(ctx, req.EmailTo, email.ReportData{
			Title:       report.Title,
			Description: report.Description,
			Location:    report.Location,
			ReportType:  report.ReportType,
			Author:      author.FullName,
			CreatedAt:   report.CreatedAt,
		})
		if err != nil {
			logs.Log.WithFields(logrus.Fields{
				"report_id": report.ID,
				"email_to":  req.EmailTo,
			}).WithError(err).Error("Failed to send report")
			c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to send report", "sent": false})
			return
		}

		updates := map[string]interface{}{
			"status":   models.ReportStatusSent,
			"email_to": req.EmailTo,
		}
		if err := applyUpdates(ctx, db, report, report.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Report sent", "sent": true, "report": report})
	}
}
