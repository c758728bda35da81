// internal/handlers/uploads.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/storage"
	"ermakplan-back/pkg/imaging"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20

// UploadFile stores a report attachment or plan image. With ?kind=image only
// images are accepted.
func UploadFile(store storage.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		file, err := c.FormFile("file")
		if err != nil {
			respondError(c, apperr.Validation("No file provided", map[string]string{"file": "is required"}))
			return
		}
		if file.Size > maxUploadSize {
			respondError(c, apperr.Validation("File too large", map[string]string{"file": "must be at most 10 MB"}))
			return
		}

		src, err := file.Open()
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		defer src.Close()

		// Validate file type
		contentType, reader, err := imaging.DetectContentType(src)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		validate := imaging.ValidateAttachment
		if c.Query("kind") == "image" {
			validate = imaging.ValidateImage
		}
		if err := validate(contentType); err != nil {
			respondError(c, apperr.Validation("Unsupported file type", map[string]string{"file": err.Error()}))
			return
		}

		objectName := storage.GenerateObjectName(userID, file.Filename)
		if _, err := store.UploadFromReader(c.Request.Context(), objectName, reader, file.Size, contentType); err != nil {
			respondError(c, apperr.Dependency("Failed to upload to storage", err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"objectName":  objectName,
			"url":         "/api/files/" + objectName,
			"contentType": contentType,
			"size":        file.Size,
			"filename":    file.Filename,
		})
	}
}

func objectParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("object"), "/")
}

// ServeFile streams a stored object to any authenticated user. Object names
// are unguessable, and plan images must be visible to plan assignees.
func ServeFile(store storage.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		objectName := objectParam(c)
		if _, ok := storage.ObjectOwner(objectName); !ok {
			respondError(c, apperr.NotFound("File not found"))
			return
		}

		obj, info, err := store.GetObject(c.Request.Context(), objectName)
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondError(c, apperr.NotFound("File not found"))
			return
		}
		if err != nil {
			respondError(c, apperr.Dependency("Failed to get file", err))
			return
		}
		defer obj.Close()

		contentType := info.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.DataFromReader(http.StatusOK, info.Size, contentType, obj, nil)
	}
}

// DeleteFile removes an object. Only its uploader or root may do so.
func DeleteFile(store storage.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		objectName := objectParam(c)
		owner, ok := storage.ObjectOwner(objectName)
		if !ok {
			respondError(c, apperr.NotFound("File not found"))
			return
		}
		if !auth.CanAccess(owner, c.GetUint("userID")) {
			respondError(c, apperr.Forbidden("Access denied"))
			return
		}

		if err := store.DeleteFile(c.Request.Context(), objectName); err != nil {
			respondError(c, apperr.Dependency("Failed to delete file", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted"})
	}
}
