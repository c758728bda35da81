package auth_test

import (
	"context"
	"testing"
	"time"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/database"
	"ermakplan-back/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name      string
		owner     uint
		requester uint
		want      bool
	}{
		{"owner", 5, 5, true},
		{"other user", 5, 6, false},
		{"root", 5, auth.RootUserID, true},
		{"root owns", auth.RootUserID, auth.RootUserID, true},
		{"anonymous", 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.CanAccess(tt.owner, tt.requester))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := auth.HashPassword("demo123")
	require.NoError(t, err)

	assert.NotEqual(t, "demo123", hashed)
	assert.True(t, auth.CheckPassword(hashed, "demo123"))
	assert.False(t, auth.CheckPassword(hashed, "demo124"))
}

func TestSessionManager_Lifecycle(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db, "alice", "secret1")
	ctx := context.Background()

	sessions := auth.NewSessionManager(db, "test-secret", time.Hour)

	token, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	session, err := sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	require.NoError(t, sessions.Destroy(ctx, token))

	_, err = sessions.Resolve(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestSessionManager_RejectsForeignSignature(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db, "bob", "secret1")
	ctx := context.Background()

	issuer := auth.NewSessionManager(db, "secret-a", time.Hour)
	verifier := auth.NewSessionManager(db, "secret-b", time.Hour)

	token, err := issuer.Create(ctx, user.ID)
	require.NoError(t, err)

	_, err = verifier.Resolve(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	_, err = issuer.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestSessionManager_CleanupExpired(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db, "carol", "secret1")
	ctx := context.Background()

	sessions := auth.NewSessionManager(db, "test-secret", time.Hour)
	live, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	stale := models.Session{ID: "stale", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	require.NoError(t, db.Create(&stale).Error)

	removed, err := sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = sessions.Resolve(ctx, live)
	assert.NoError(t, err)
}
