// internal/handlers/owned.go
package handlers

import (
	"context"
	"time"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ownedPtr is satisfied by pointers to the per-user models.
type ownedPtr[T any] interface {
	*T
	models.Owned
}

// findOwned loads the row with id and applies the owner-or-root policy:
// NotFound when the row is missing, Forbidden when the policy denies.
func findOwned[T any, PT ownedPtr[T]](ctx context.Context, db *gorm.DB, id, requesterID uint, label string) (PT, error) {
	row := PT(new(T))
	if err := db.WithContext(ctx).First(row, id).Error; err != nil {
		return nil, dbError(err, label+" not found")
	}
	if !auth.CanAccess(row.OwnerID(), requesterID) {
		return nil, apperr.Forbidden("Access denied")
	}
	return row, nil
}

// loadOwned is findOwned for the :id path parameter.
func loadOwned[T any, PT ownedPtr[T]](c *gin.Context, db *gorm.DB, label string) (PT, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	return findOwned[T, PT](c.Request.Context(), db, id, c.GetUint("userID"), label)
}

// checkReference validates an optional foreign key supplied by the client.
// The referenced row must exist and be accessible to the requester.
func checkReference[T any, PT ownedPtr[T]](c *gin.Context, db *gorm.DB, id *uint, field, label string) error {
	if id == nil {
		return nil
	}
	_, err := findOwned[T, PT](c.Request.Context(), db, *id, c.GetUint("userID"), label)
	if err == nil {
		return nil
	}
	switch apperr.From(err).Kind {
	case apperr.KindNotFound, apperr.KindForbidden:
		return apperr.Validation("Validation failed", map[string]string{field: "unknown " + label})
	default:
		return err
	}
}

// nextUpdatedAt returns the update timestamp for a row last stamped at prev.
// It is always strictly after prev.
func nextUpdatedAt(prev time.Time) time.Time {
	now := nowUTC()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// applyUpdates writes updates with an advancing updated_at, then reloads row.
func applyUpdates(ctx context.Context, db *gorm.DB, row interface{}, prev time.Time, updates map[string]interface{}) error {
	updates["updated_at"] = nextUpdatedAt(prev)

	if err := db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
		return dbError(err, "Resource not found")
	}
	if err := db.WithContext(ctx).First(row).Error; err != nil {
		return dbError(err, "Resource not found")
	}
	return nil
}

// setOptional records a nullable column: the new value when present, NULL
// when the client sent an explicit null.
func setOptional[V any](updates map[string]interface{}, column string, value *V, null bool) {
	switch {
	case value != nil:
		updates[column] = *value
	case null:
		updates[column] = nil
	}
}

// memberCheck reports whether userID has been granted access to the row id.
type memberCheck func(db *gorm.DB, id, userID uint) (bool, error)

// loadShared is loadOwned widened to users granted access through a join
// table. It is only used for reads.
func loadShared[T any, PT ownedPtr[T]](c *gin.Context, db *gorm.DB, label string, isMember memberCheck) (PT, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	userID := c.GetUint("userID")

	row := PT(new(T))
	if err := db.WithContext(ctx).First(row, id).Error; err != nil {
		return nil, dbError(err, label+" not found")
	}
	if auth.CanAccess(row.OwnerID(), userID) {
		return row, nil
	}

	member, err := isMember(db.WithContext(ctx), id, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !member {
		return nil, apperr.Forbidden("Access denied")
	}
	return row, nil
}
