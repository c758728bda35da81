// internal/handlers/parts.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/models"
	"ermakplan-back/pkg/imaging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreatePartRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	PartNumber  string   `json:"partNumber" binding:"required,max=100"`
	Length      *float64 `json:"length" binding:"omitnil,gte=0"`
	Width       *float64 `json:"width" binding:"omitnil,gte=0"`
	Height      *float64 `json:"height" binding:"omitnil,gte=0"`
	Weight      *float64 `json:"weight" binding:"omitnil,gte=0"`
	Color       string   `json:"color" binding:"max=64"`
	Category    string   `json:"category" binding:"max=100"`
	Description string   `json:"description"`
}

type UpdatePartRequest struct {
	Name        *string  `json:"name" binding:"omitnil,min=1,max=255"`
	PartNumber  *string  `json:"partNumber" binding:"omitnil,min=1,max=100"`
	Length      *float64 `json:"length" binding:"omitnil,gte=0"`
	Width       *float64 `json:"width" binding:"omitnil,gte=0"`
	Height      *float64 `json:"height" binding:"omitnil,gte=0"`
	Weight      *float64 `json:"weight" binding:"omitnil,gte=0"`
	Color       *string  `json:"color" binding:"omitnil,max=64"`
	Category    *string  `json:"category" binding:"omitnil,max=100"`
	Description *string  `json:"description"`
}

var (
	errPartNumberTaken = apperr.Conflict("Part number already exists")
	errPartNumberBlank = apperr.Validation("Validation failed", map[string]string{"partNumber": "is required"})
)

// partNumberTaken checks the number against every user's parts.
func partNumberTaken(db *gorm.DB, partNumber string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Part{}).
		Where("part_number = ? AND id <> ?", partNumber, exceptID).
		Count(&count).Error
	return count > 0, err
}

func partConflict(err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.From(dbError(err, "Part not found"))
	}
	if appErr.Kind == apperr.KindConflict {
		return errPartNumberTaken
	}
	return appErr
}

func ListParts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Where("user_id = ?", c.GetUint("userID"))
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(part_number) LIKE ?", like, like)
		}

		parts := []models.Part{}
		if err := query.Order("created_at DESC, id DESC").Find(&parts).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, parts)
	}
}

func GetPart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		part, err := loadOwned[models.Part](c, db, "Part")
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, part)
	}
}

// CreatePart inserts the part and stores its QR payload in one transaction.
// Part numbers are unique across all users.
func CreatePart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePartRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		partNumber := strings.TrimSpace(req.PartNumber)
		if partNumber == "" {
			respondError(c, errPartNumberBlank)
			return
		}

		taken, err := partNumberTaken(db.WithContext(ctx), partNumber, 0)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if taken {
			respondError(c, errPartNumberTaken)
			return
		}

		part := models.Part{
			Name:        req.Name,
			PartNumber:  partNumber,
			Length:      req.Length,
			Width:       req.Width,
			Height:      req.Height,
			Weight:      req.Weight,
			Color:       req.Color,
			Category:    req.Category,
			Description: req.Description,
			UserID:      c.GetUint("userID"),
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&part).Error; err != nil {
				return partConflict(err)
			}

			payload, err := imaging.PartQRPayload(part.ID, part.Name, part.PartNumber)
			if err != nil {
				return apperr.Dependency("Failed to generate QR code", err)
			}
			part.QRCode = payload
			return tx.Model(&part).UpdateColumn("qr_code", payload).Error
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, part)
	}
}

// UpdatePart regenerates the QR payload when the name or part number changes.
func UpdatePart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		part, err := loadOwned[models.Part](c, db, "Part")
		if err != nil {
			respondError(c, err)
			return
		}

		var req UpdatePartRequest
		nulls, err := bindPatch(c, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		updates := map[string]interface{}{}
		name, partNumber := part.Name, part.PartNumber
		if req.Name != nil {
			name = *req.Name
			updates["name"] = name
		}
		if req.PartNumber != nil {
			partNumber = strings.TrimSpace(*req.PartNumber)
			if partNumber == "" {
				respondError(c, errPartNumberBlank)
				return
			}
			if partNumber != part.PartNumber {
				taken, err := partNumberTaken(db.WithContext(ctx), partNumber, part.ID)
				if err != nil {
					respondError(c, apperr.Internal(err))
					return
				}
				if taken {
					respondError(c, errPartNumberTaken)
					return
				}
			}
			updates["part_number"] = partNumber
		}
		setOptional(updates, "length", req.Length, nulls["length"])
		setOptional(updates, "width", req.Width, nulls["width"])
		setOptional(updates, "height", req.Height, nulls["height"])
		setOptional(updates, "weight", req.Weight, nulls["weight"])
		if req.Color != nil {
			updates["color"] = *req.Color
		}
		if req.Category != nil {
			updates["category"] = *req.Category
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}

		if name != part.Name || partNumber != part.PartNumber {
			payload, err := imaging.PartQRPayload(part.ID, name, partNumber)
			if err != nil {
				respondError(c, apperr.Dependency("Failed to generate QR code", err))
				return
			}
			updates["qr_code"] = payload
		}

		if err := applyUpdates(ctx, db, part, part.UpdatedAt, updates); err != nil {
			respondError(c, partConflict(err))
			return
		}

		c.JSON(http.StatusOK, part)
	}
}

func DeletePart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		part, err := loadOwned[models.Part](c, db, "Part")
		if err != nil {
			respondError(c, err)
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&models.Part{}, part.ID).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Part deleted"})
	}
}

// GetPartQR renders the stored QR payload as a PNG.
func GetPartQR(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		part, err := loadOwned[models.Part](c, db, "Part")
		if err != nil {
			respondError(c, err)
			return
		}

		size, err := strconv.Atoi(c.DefaultQuery("size", "256"))
		if err != nil || size < 64 || size > 1024 {
			respondError(c, apperr.Validation("Invalid size", map[string]string{"size": "must be between 64 and 1024"}))
			return
		}

		payload := part.QRCode
		if payload == "" {
			if payload, err = imaging.PartQRPayload(part.ID, part.Name, part.PartNumber); err != nil {
				respondError(c, apperr.Dependency("Failed to generate QR code", err))
				return
			}
		}

		png, err := imaging.RenderQR(payload, size)
		if err != nil {
			respondError(c, apperr.Dependency("Failed to generate QR code", err))
			return
		}

		c.Header("Content-Disposition", "inline; filename=part-"+strconv.FormatUint(uint64(part.ID), 10)+"-qr.png")
		c.Data(http.StatusOK, "image/png", png)
	}
}
