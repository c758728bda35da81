// pkg/email/mock.go
package email

import (
	"context"
	"sync"
	"time"

	"ermakplan-back/internal/logs"

	"github.com/sirupsen/logrus"
)

// MockMailer records mail instead of sending it. It backs development mode
// and tests.
type MockMailer struct {
	mu   sync.Mutex
	sent []SentEmail
	err  error
}

// SentEmail represents an email that was sent via MockMailer
type SentEmail struct {
	To       string
	Template string
	Data     interface{}
	SentAt   time.Time
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) SendReport(ctx context.Context, to string, report ReportData) error {
	return m.record(to, "report", report)
}

func (m *MockMailer) SendReminder(ctx context.Context, to string, reminder ReminderData) error {
	return m.record(to, "reminder", reminder)
}

func (m *MockMailer) record(to, template string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentEmail{To: to, Template: template, Data: data, SentAt: time.Now()})
	logs.Log.WithFields(logrus.Fields{
		"to":       to,
		"template": template,
	}).Info("Mock mailer recorded email")
	return nil
}

// SetError makes subsequent sends fail with err, or succeed when err is nil.
func (m *MockMailer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SentEmails returns a copy of everything recorded so far.
func (m *MockMailer) SentEmails() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Clear clears all sent emails (for testing)
func (m *MockMailer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
