// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ermakplan-back/internal/apperr"
	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName" binding:"required,max=255"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (sc SessionCookie) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, token, int(sc.TTL.Seconds()), "/", "", sc.Secure, true)
}

func (sc SessionCookie) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

func Register(db *gorm.DB, sessions *auth.SessionManager, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		username := strings.TrimSpace(req.Username)

		// Check if user exists
		var existing int64
		if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		if existing > 0 {
			respondError(c, apperr.Conflict("Username already taken"))
			return
		}

		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}

		user := models.User{
			Username: username,
			Password: hashedPassword,
			FullName: req.FullName,
			Email:    req.Email,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, apperr.Conflict("Username already taken"))
				return
			}
			respondError(c, apperr.Internal(err))
			return
		}

		token, err := sessions.Create(ctx, user.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		cookie.set(c, token)

		c.JSON(http.StatusCreated, user)
	}
}

func Login(db *gorm.DB, sessions *auth.SessionManager, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()

		// Find user
		var user models.User
		if err := db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, apperr.Unauthenticated("Invalid username or password"))
				return
			}
			respondError(c, apperr.Internal(err))
			return
		}

		if !auth.CheckPassword(user.Password, req.Password) {
			respondError(c, apperr.Unauthenticated("Invalid username or password"))
			return
		}

		token, err := sessions.Create(ctx, user.ID)
		if err != nil {
			respondError(c, apperr.Internal(err))
			return
		}
		cookie.set(c, token)

		c.JSON(http.StatusOK, user)
	}
}

// Logout destroys the session named by the cookie, if any, and always clears
// the cookie.
func Logout(sessions *auth.SessionManager, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(cookie.Name); err == nil && token != "" {
			if err := sessions.Destroy(c.Request.Context(), token); err != nil {
				respondError(c, apperr.Internal(err))
				return
			}
		}
		cookie.clear(c)

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func GetCurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, c.GetUint("userID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, apperr.Unauthenticated("Not authenticated"))
				return
			}
			respondError(c, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
