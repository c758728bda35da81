package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"ermakplan-back/internal/database"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidation()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[uint][]realtime.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[uint][]realtime.Event)}
}

func (p *recordingPublisher) Broadcast(ev realtime.Event) { p.SendToUser(0, ev) }

func (p *recordingPublisher) SendToUser(userID uint, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], ev)
}

func (p *recordingPublisher) For(userID uint) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events[userID]...)
}

// asUser stands in for the auth middleware. The caller is read from the
// X-User header.
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.GetHeader("X-User"), 10, 64)
		c.Set("userID", uint(id))
		c.Next()
	}
}

func perform(r http.Handler, method, path string, userID uint, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", strconv.FormatUint(uint64(userID), 10))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedUsers(t *testing.T, db *gorm.DB) (root, owner, other *models.User) {
	t.Helper()
	root = database.CreateTestUser(t, db, "admin", "admin123")
	owner = database.CreateTestUser(t, db, "demo", "demo123")
	other = database.CreateTestUser(t, db, "carol", "carol123")
	return root, owner, other
}

func TestTaskStatus(t *testing.T) {
	str := func(s string) *string { return &s }
	flag := func(b bool) *bool { return &b }

	tests := []struct {
		name          string
		current       string
		status        *string
		completed     *bool
		wantStatus    string
		wantCompleted bool
	}{
		{"dashed status", models.TaskStatusPending, str("in-progress"), nil, models.TaskStatusInProgress, false},
		{"completed status", models.TaskStatusPending, str("completed"), nil, models.TaskStatusCompleted, true},
		{"completed status wins", models.TaskStatusPending, str("completed"), flag(false), models.TaskStatusCompleted, true},
		{"completed flag wins", models.TaskStatusPending, str("pending"), flag(true), models.TaskStatusCompleted, true},
		{"flag only", models.TaskStatusInProgress, nil, flag(true), models.TaskStatusCompleted, true},
		{"reopen", models.TaskStatusCompleted, nil, flag(false), models.TaskStatusPending, false},
		{"unfinished stays", models.TaskStatusInProgress, nil, flag(false), models.TaskStatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, completed := taskStatus(tt.current, tt.status, tt.completed)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCompleted, completed)
		})
	}
}

func TestNextUpdatedAt(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	assert.True(t, nextUpdatedAt(past).After(past))

	future := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	next := nextUpdatedAt(future)
	assert.Equal(t, future.Add(time.Microsecond), next)
}

func TestNormalizeContent(t *testing.T) {
	empty := normalizeContent(nil)
	assert.NotNil(t, empty.BackgroundImages)
	assert.NotNil(t, empty.Points)

	content := normalizeContent(&models.PlanContent{Points: []models.PlanPoint{{ID: "p1"}}})
	require.Len(t, content.Points, 1)
	assert.NotNil(t, content.Points[0].Notes)
	assert.NotNil(t, content.Points[0].Images)
	assert.NotNil(t, content.Points[0].PartIDs)

	raw, err := json.Marshal(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"backgroundImages":[],"points":[{"id":"p1","x":0,"y":0,"notes":[],"images":[],"partIds":[]}]}`, string(raw))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	start, end := dayBounds(time.Date(2026, 3, 10, 1, 30, 0, 0, loc))

	assert.Equal(t, time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.UTC, start.Location())
}

func TestBindPatch_ReportsExplicitNulls(t *testing.T) {
	r := gin.New()
	r.PATCH("/", func(c *gin.Context) {
		var req UpdateTaskRequest
		nulls, err := bindPatch(c, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"nulls": nulls, "title": req.Title})
	})

	w := perform(r, http.MethodPatch, "/", 0, gin.H{"title": "x", "dueDate": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nulls":{"dueDate":true},"title":"x"}`, w.Body.String())

	w = perform(r, http.MethodPatch, "/", 0, gin.H{"title": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Validation failed","fields":{"title":"must be at least 1"}}`, w.Body.String())
}

func TestReminderLifecycle(t *testing.T) {
	db := database.NewTestDB(t)
	_, owner, other := seedUsers(t, db)
	hub := newRecordingPublisher()

	task := models.Task{Title: "Inspect", UserID: owner.ID}
	require.NoError(t, db.Create(&task).Error)

	r := gin.New()
	r.Use(asUser())
	r.POST("/reminders", CreateReminder(db, hub))
	r.PATCH("/reminders/:id", UpdateReminder(db, hub))
	r.DELETE("/reminders/:id", DeleteReminder(db, hub))
	r.GET("/tasks/:id/reminders", ListTaskReminders(db))

	at := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	payload := gin.H{"taskId": task.ID, "reminderDate": at, "message": "check gauges"}

	w := perform(r, http.MethodPost, "/reminders", other.ID, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodPost, "/reminders", owner.ID, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reminder models.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reminder))
	assert.Equal(t, models.ReminderTypeNotification, reminder.ReminderType)
	assert.False(t, reminder.Sent)
	require.Len(t, hub.For(owner.ID), 1)
	assert.Equal(t, realtime.ActionCreate, hub.For(owner.ID)[0].Action)

	path := "/reminders/" + strconv.FormatUint(uint64(reminder.ID), 10)
	w = perform(r, http.MethodPatch, path, owner.ID, gin.H{"sent": true})
	require.Equal(t, http.StatusOK, w.Code)

	// Moving the date re-arms the reminder.
	w = perform(r, http.MethodPatch, path, owner.ID, gin.H{"reminderDate": at.Add(time.Hour)})
	require.Equal(t, http.StatusOK, w.Code)
	var moved models.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.False(t, moved.Sent)
	assert.True(t, moved.UpdatedAt.After(reminder.UpdatedAt))

	w = perform(r, http.MethodPatch, path, other.ID, gin.H{"message": "mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/tasks/"+strconv.FormatUint(uint64(task.ID), 10)+"/reminders", owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = perform(r, http.MethodDelete, path, owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := hub.For(owner.ID)
	assert.Equal(t, realtime.ActionDelete, events[len(events)-1].Action)

	w = perform(r, http.MethodDelete, path, owner.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProjectDetachesTasksAndReports(t *testing.T) {
	db := database.NewTestDB(t)
	_, owner, _ := seedUsers(t, db)

	project := models.Project{Name: "Depot", UserID: owner.ID}
	require.NoError(t, db.Create(&project).Error)
	task := models.Task{Title: "On project", UserID: owner.ID, ProjectID: &project.ID}
	require.NoError(t, db.Create(&task).Error)
	report := models.Report{Title: "Weekly", UserID: owner.ID, ProjectID: &project.ID}
	require.NoError(t, db.Create(&report).Error)

	r := gin.New()
	r.Use(asUser())
	r.DELETE("/projects/:id", DeleteProject(db))

	w := perform(r, http.MethodDelete, "/projects/"+strconv.FormatUint(uint64(project.ID), 10), owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Project deleted"}`, w.Body.String())

	require.NoError(t, db.First(&task, task.ID).Error)
	assert.Nil(t, task.ProjectID)
	require.NoError(t, db.First(&report, report.ID).Error)
	assert.Nil(t, report.ProjectID)
}

func TestDashboardStats(t *testing.T) {
	db := database.NewTestDB(t)
	_, owner, other := seedUsers(t, db)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	tasks := []models.Task{
		{Title: "done", UserID: owner.ID, Status: models.TaskStatusCompleted, Completed: true, DueDate: &yesterday},
		{Title: "late", UserID: owner.ID, DueDate: &yesterday},
		{Title: "upcoming", UserID: owner.ID, DueDate: &tomorrow},
		{Title: "undated", UserID: owner.ID},
		{Title: "someone else", UserID: other.ID, DueDate: &yesterday},
	}
	require.NoError(t, db.Create(&tasks).Error)

	r := gin.New()
	r.Use(asUser())
	r.GET("/dashboard/stats", GetDashboardStats(db))

	w := perform(r, http.MethodGet, "/dashboard/stats", owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":4,"completed":1,"pending":3,"overdue":1}`, w.Body.String())
}

func TestListUsersHidesPasswords(t *testing.T) {
	db := database.NewTestDB(t)
	seedUsers(t, db)

	r := gin.New()
	r.Use(asUser())
	r.GET("/users", ListUsers(db))

	w := perform(r, http.MethodGet, "/users", 2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 3)
}
