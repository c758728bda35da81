// internal/database/test_helpers.go
package database

import (
	"context"
	"fmt"
	"testing"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := Open(sqlite.Open(dsn), false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, MigrateDB(db))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateTestUser inserts a user with a hashed password.
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{Username: username, Password: hashed, FullName: "Test " + username}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)
	return user
}
