// internal/handlers/location_reports.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateLocationReportRequest struct {
	ReportDate  *time.Time `json:"reportDate"`
	Location    string     `json:"location" binding:"required,max=255"`
	Description string     `json:"description"`
	GPSLat      *float64   `json:"gpsLat" binding:"omitnil,gte=-90,lte=90"`
	GPSLong     *float64   `json:"gpsLong" binding:"omitnil,gte=-180,lte=180"`
}

type UpdateLocationReportRequest struct {
	ReportDate  *time.Time `json:"reportDate"`
	Location    *string    `json:"location" binding:"omitnil,min=1,max=255"`
	Description *string    `json:"description"`
	GPSLat      *float64   `json:"gpsLat" binding:"omitnil,gte=-90,lte=90"`
	GPSLong     *float64   `json:"gpsLong" binding:"omitnil,gte=-180,lte=180"`
}

func locationEvent(action string, data interface{}) realtime.Event {
	return realtime.Event{Type: realtime.TypeLocationReport, Action: action, Data: data}
}

// dayBounds returns the UTC range of the server-local calendar day holding t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func ListLocationReports(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reports := []models.LocationReport{}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", c.GetUint("userID")).
			Order("report_date DESC, id DESC").
			Find(&reports).Error
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, reports)
	}
}

// GetTodayLocationReport returns the caller's latest report of the current
// day, or null when there is none.
func GetTodayLocationReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end := dayBounds(time.Now())

		var report models.LocationReport
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND report_date >= ? AND report_date < ?", c.GetUint("userID"), start, end).
			Order("report_date DESC, id DESC").
			First(&report).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

// ListAllLocationReports is the root-only view across users. It accepts
// optional date (YYYY-MM-DD) and userId filters.
func ListAllLocationReports(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Preload("User")

		if date := c.Query("date"); date != "" {
			day, err := time.ParseInLocation("2006-01-02", date, time.Local)
			if err != nil {
				respondError(c, apperr.Validation("Invalid filter", map[string]string{"date": "must be YYYY-MM-DD"}))
				return
			}
			start, end := dayBounds(day)
			query = query.Where("report_date >= ? AND report_date < ?", start, end)
		}
		if userID := c.Query("userId"); userID != "" {
			id, err := strconv.ParseUint(userID, 10, 64)
			if err != nil {
				respondError(c, apperr.Validation("Invalid filter", map[string]string{"userId": "must be a positive integer"}))
				return
			}
			query = query.Where("user_id = ?", id)
		}

		reports := []models.LocationReport{}
		if err := query.Order("report_date DESC, id DESC").Find(&reports).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, reports)
	}
}

// CreateLocationReport broadcasts the new report, with its user, to every
// live connection.
func CreateLocationReport(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLocationReportRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		reportDate := nowUTC()
		if req.ReportDate != nil {
			reportDate = req.ReportDate.UTC()
		}

		report := models.LocationReport{
			UserID:      c.GetUint("userID"),
			ReportDate:  reportDate,
			Location:    req.Location,
			Description: req.Description,
			GPSLat:      req.GPSLat,
			GPSLong:     req.GPSLong,
		}
		if err := db.WithContext(ctx).Create(&report).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if err := db.WithContext(ctx).Preload("User").First(&report, report.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		hub.Broadcast(locationEvent(realtime.ActionCreate, report))

		c.JSON(http.StatusCreated, report)
	}
}

func UpdateLocationReport(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.LocationReport](c, db, "Location report")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdateLocationReportRequest
		nulls, err := bindPatch(c, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		updates := map[string]interface{}{}
		if req.ReportDate != nil {
			updates["report_date"] = req.ReportDate.UTC()
		}
		if req.Location != nil {
			updates["location"] = *req.Location
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		setOptional(updates, "gps_lat", req.GPSLat, nulls["gpsLat"])
		setOptional(updates, "gps_long", req.GPSLong, nulls["gpsLong"])

		if err := applyUpdates(ctx, db, report, report.UpdatedAt, updates); err != nil {
			respondError(c, err)
			return
		}
		if err := db.WithContext(ctx).Preload("User").First(report, report.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		hub.Broadcast(locationEvent(realtime.ActionUpdate, report))

		c.JSON(http.StatusOK, report)
	}
}

func DeleteLocationReport(db *gorm.DB, hub realtime.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := loadOwned[models.LocationReport](c, db, "Location report")
		if err != nil {
			respondError(c, err)
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&models.LocationReport{}, report.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		hub.Broadcast(locationEvent(realtime.ActionDelete, gin.H{"id": report.ID}))

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Location report deleted"})
	}
}
