package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRender(t *testing.T) {
	templates := NewTemplates()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tmpl     EmailTemplate
		data     interface{}
		contains []string
	}{
		{
			name: "report",
			tmpl: templates.Report,
			data: ReportData{
				Title:       "Site inspection",
				Description: "<p>All clear</p>",
				Location:    "Hall B",
				Author:      "demo",
				CreatedAt:   due,
			},
			contains: []string{"Site inspection", "<p>All clear</p>", "Hall B", "demo"},
		},
		{
			name: "reminder",
			tmpl: templates.Reminder,
			data: ReminderData{
				Recipient: "Demo User",
				TaskTitle: "Order bolts",
				Message:   "Supplier closes Friday",
				DueDate:   &due,
			},
			contains: []string{"Order bolts", "Supplier closes Friday", "March 1, 2026", "Demo User"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := templateData{AppName: "ErmakPlan", Data: tt.data}
			for _, text := range []string{tt.tmpl.Subject, tt.tmpl.HTMLBody, tt.tmpl.TextBody} {
				out, err := render(text, td)
				require.NoError(t, err)
				assert.NotEmpty(t, out)
			}

			html, err := render(tt.tmpl.HTMLBody, td)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, html, want)
			}
		})
	}
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := string(buildMIMEMessage("noreply@ermak.local", "ErmakPlan", "boss@ermak.local", "Hi", "text", "<b>html</b>", "b0undary"))

	assert.True(t, strings.HasPrefix(msg, "From: ErmakPlan <noreply@ermak.local>"))
	assert.Contains(t, msg, "To: boss@ermak.local")
	assert.Contains(t, msg, `boundary="b0undary"`)
	assert.Contains(t, msg, "--b0undary--")
}

func TestMockMailer(t *testing.T) {
	m := NewMockMailer()
	ctx := context.Background()

	require.NoError(t, m.SendReport(ctx, "a@b.c", ReportData{Title: "r"}))
	require.NoError(t, m.SendReminder(ctx, "d@e.f", ReminderData{TaskTitle: "t"}))

	sent := m.SentEmails()
	require.Len(t, sent, 2)
	assert.Equal(t, "report", sent[0].Template)
	assert.Equal(t, "d@e.f", sent[1].To)

	boom := errors.New("smtp down")
	m.SetError(boom)
	assert.ErrorIs(t, m.SendReport(ctx, "a@b.c", ReportData{}), boom)
	assert.Len(t, m.SentEmails(), 2)

	m.Clear()
	assert.Empty(t, m.SentEmails())
}
