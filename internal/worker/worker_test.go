package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ermakplan-back/internal/database"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"
	"ermakplan-back/pkg/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type pushed struct {
	userID uint
	event  realtime.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPublisher) Broadcast(ev realtime.Event) {
	p.SendToUser(0, ev)
}

func (p *recordingPublisher) SendToUser(userID uint, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{userID: userID, event: ev})
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.event.Type+":"+e.event.Action)
	}
	return out
}

func seedReminder(t *testing.T, db *gorm.DB, owner *models.User, reminderType string, at time.Time) *models.Reminder {
	t.Helper()

	task := &models.Task{Title: "Order bolts", UserID: owner.ID, Status: models.TaskStatusPending, Priority: "medium"}
	require.NoError(t, db.Create(task).Error)

	reminder := &models.Reminder{
		TaskID:       task.ID,
		UserID:       owner.ID,
		ReminderDate: at.UTC(),
		ReminderType: reminderType,
		Message:      "Supplier closes Friday",
	}
	require.NoError(t, db.Create(reminder).Error)
	return reminder
}

func TestDispatchDue_Notification(t *testing.T) {
	db := database.NewTestDB(t)
	owner := database.CreateTestUser(t, db, "demo", "demo123")
	mailer := email.NewMockMailer()
	hub := &recordingPublisher{}
	d := NewReminderDispatcher(db, mailer, hub, time.Minute)

	due := seedReminder(t, db, owner, models.ReminderTypeNotification, time.Now().Add(-time.Minute))
	future := seedReminder(t, db, owner, models.ReminderTypeNotification, time.Now().Add(time.Hour))

	sent, err := d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var reloaded models.Reminder
	require.NoError(t, db.First(&reloaded, due.ID).Error)
	assert.True(t, reloaded.Sent)
	var pending models.Reminder
	require.NoError(t, db.First(&pending, future.ID).Error)
	assert.False(t, pending.Sent)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Supplier closes Friday", notifications[0].Message)
	require.NotNil(t, notifications[0].RelatedTaskID)
	assert.Equal(t, due.TaskID, *notifications[0].RelatedTaskID)

	assert.Equal(t, []string{"notification:create", "reminder:due"}, hub.actions())
	assert.Empty(t, mailer.SentEmails())

	// Nothing is delivered twice.
	sent, err = d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestDispatchDue_Email(t *testing.T) {
	db := database.NewTestDB(t)
	owner := database.CreateTestUser(t, db, "demo", "demo123")
	require.NoError(t, db.Model(owner).Update("email", "demo@ermak.local").Error)

	mailer := email.NewMockMailer()
	hub := &recordingPublisher{}
	d := NewReminderDispatcher(db, mailer, hub, time.Minute)

	reminder := seedReminder(t, db, owner, models.ReminderTypeBoth, time.Now().Add(-time.Minute))

	mailer.SetError(errors.New("smtp down"))
	sent, err := d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	var reloaded models.Reminder
	require.NoError(t, db.First(&reloaded, reminder.ID).Error)
	assert.False(t, reloaded.Sent, "failed delivery stays pending")

	mailer.SetError(nil)
	sent, err = d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	emails := mailer.SentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "demo@ermak.local", emails[0].To)
	assert.Equal(t, "reminder", emails[0].Template)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDispatchDue_EmailOnlyCreatesNoNotification(t *testing.T) {
	db := database.NewTestDB(t)
	owner := database.CreateTestUser(t, db, "demo", "demo123")
	hub := &recordingPublisher{}
	d := NewReminderDispatcher(db, email.NewMockMailer(), hub, time.Minute)

	seedReminder(t, db, owner, models.ReminderTypeEmail, time.Now().Add(-time.Minute))

	sent, err := d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []string{"reminder:due"}, hub.actions())
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestRunSessionCleanup(t *testing.T) {
	cleaner := &countingCleaner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		RunSessionCleanup(ctx, cleaner, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup job did not stop")
	}
}
