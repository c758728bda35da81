// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// ObjectStore keeps uploaded attachments and plan images.
type ObjectStore interface {
	UploadFromReader(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	GetObject(ctx context.Context, objectName string) (io.ReadCloser, ObjectInfo, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// GenerateObjectName creates a unique object name under the owner's folder
func GenerateObjectName(userID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("users/%d/%s%s", userID, uuid.New().String(), ext)
}

// ObjectOwner extracts the user id from a name made by GenerateObjectName.
func ObjectOwner(objectName string) (uint, bool) {
	var userID uint
	var rest string
	if _, err := fmt.Sscanf(objectName, "users/%d/%s", &userID, &rest); err != nil || rest == "" {
		return 0, false
	}
	return userID, true
}
