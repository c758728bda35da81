// internal/database/seed.go
package database

import (
	"context"
	"fmt"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/logs"
	"ermakplan-back/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type demoUser struct {
	Username string
	Password string
	FullName string
}

// The first account created on an empty database becomes root (id 1).
var demoUsers = []demoUser{
	{Username: "admin", Password: "admin123", FullName: "Administrator"},
	{Username: "demo", Password: "demo123", FullName: "Demo User"},
}

// SeedDemoUsers creates the demo accounts when the users table is empty.
func SeedDemoUsers(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, du := range demoUsers {
		hashed, err := auth.HashPassword(du.Password)
		if err != nil {
			return err
		}

		user := models.User{Username: du.Username, Password: hashed, FullName: du.FullName}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", du.Username, err)
		}

		logs.Log.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("Seeded demo user")
	}

	var root models.User
	if err := db.WithContext(ctx).First(&root, "username = ?", demoUsers[0].Username).Error; err != nil {
		return fmt.Errorf("load root user: %w", err)
	}
	if root.ID != auth.RootUserID {
		logs.Log.WithField("user_id", root.ID).Warn("Seeded admin is not the root account")
	}
	return nil
}
