// internal/auth/session.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ermakplan-back/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidSession = errors.New("invalid session")

// SessionManager keeps sessions server-side. The cookie only carries a
// signed token naming the session row, which in turn holds the user id.
type SessionManager struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(db *gorm.DB, secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL is the fixed lifetime of a session.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Create stores a new session for userID and returns its cookie token.
func (m *SessionManager) Create(ctx context.Context, userID uint) (string, error) {
	now := time.Now().UTC()
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Resolve returns the live session behind token.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := m.parse(token, true)
	if err != nil {
		return nil, err
	}

	var session models.Session
	err = m.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", sessionID, time.Now().UTC()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

// Destroy deletes the session behind token. Tokens that cannot be parsed
// name no session and are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	sessionID, err := m.parse(token, false)
	if err != nil {
		return nil
	}
	if err := m.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes sessions past their expiry.
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	res := m.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (m *SessionManager) parse(token string, validateClaims bool) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if validateClaims {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || claims.ID == "" {
		return "", ErrInvalidSession
	}
	return claims.ID, nil
}
