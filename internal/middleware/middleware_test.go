package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/database"
	"ermakplan-back/internal/middleware"
	"ermakplan-back/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "test_session"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(sessions *auth.SessionManager) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORSMiddleware([]string{"http://localhost:5173"}))

	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(sessions, cookieName))
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetUint("userID")})
	})
	protected.GET("/admin", middleware.RequireRoot(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	db := database.NewTestDB(t)
	root := database.CreateTestUser(t, db, "admin", "admin123")
	user := database.CreateTestUser(t, db, "demo", "demo123")
	require.Equal(t, auth.RootUserID, root.ID)

	sessions := auth.NewSessionManager(db, "test-secret", time.Hour)
	rootToken, err := sessions.Create(context.Background(), root.ID)
	require.NoError(t, err)
	userToken, err := sessions.Create(context.Background(), user.ID)
	require.NoError(t, err)

	r := newRouter(sessions)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no cookie", "/api/whoami", "", http.StatusUnauthorized},
		{"garbage cookie", "/api/whoami", "garbage", http.StatusUnauthorized},
		{"valid session", "/api/whoami", userToken, http.StatusOK},
		{"admin as user", "/api/admin", userToken, http.StatusForbidden},
		{"admin as root", "/api/admin", rootToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthMiddleware_DestroyedSession(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db, "demo", "demo123")
	sessions := auth.NewSessionManager(db, "test-secret", time.Hour)

	token, err := sessions.Create(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, sessions.Destroy(context.Background(), token))

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	w := httptest.NewRecorder()
	newRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Not authenticated"}`, w.Body.String())
}

func TestAuthMiddleware_StoreFailure(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db, "demo", "demo123")
	sessions := auth.NewSessionManager(db, "test-secret", time.Hour)

	token, err := sessions.Create(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.Session{}))

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	w := httptest.NewRecorder()
	newRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/whoami", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/whoami", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
