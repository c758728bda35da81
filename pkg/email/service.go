// pkg/email/service.go
package email

import (
	"context"
	"time"
)

// Mailer defines the outbound mail the API sends
type Mailer interface {
	SendReport(ctx context.Context, to string, report ReportData) error
	SendReminder(ctx context.Context, to string, reminder ReminderData) error
}

// ReportData is the report content mailed by the send operation
type ReportData struct {
	Title       string
	Description string // HTML
	Location    string
	ReportType  string
	Author      string
	CreatedAt   time.Time
}

// ReminderData is the content of a due reminder
type ReminderData struct {
	Recipient    string
	TaskTitle    string
	Message      string
	DueDate      *time.Time
	ReminderDate time.Time
}

// EmailTemplate represents an email template
type EmailTemplate struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Config holds email service configuration
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	AppName      string
}

// Templates holds all email templates
type Templates struct {
	Report   EmailTemplate
	Reminder EmailTemplate
}

// NewTemplates creates default email templates
func NewTemplates() *Templates {
	return &Templates{
		Report: EmailTemplate{
			Subject: "{{.AppName}} report: {{.Data.Title}}",
			HTMLBody: `
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Data.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 700px; margin: 0 auto; padding: 20px; }
        .meta { color: #666; font-size: 14px; margin-bottom: 20px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 14px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Data.Title}}</h1>
        <div class="meta">
            {{if .Data.ReportType}}<p>Type: {{.Data.ReportType}}</p>{{end}}
            {{if .Data.Location}}<p>Location: {{.Data.Location}}</p>{{end}}
            <p>Author: {{.Data.Author}}</p>
            <p>Created: {{.Data.CreatedAt.Format "January 2, 2006 at 3:04 PM"}}</p>
        </div>
        <div>{{.Data.Description}}</div>
        <div class="footer">
            <p>Sent from {{.AppName}}</p>
        </div>
    </div>
</body>
</html>`,
			TextBody: `{{.Data.Title}}

{{if .Data.ReportType}}Type: {{.Data.ReportType}}
{{end}}{{if .Data.Location}}Location: {{.Data.Location}}
{{end}}Author: {{.Data.Author}}
Created: {{.Data.CreatedAt.Format "January 2, 2006 at 3:04 PM"}}

{{.Data.Description}}

Sent from {{.AppName}}`,
		},

		Reminder: EmailTemplate{
			Subject: "Reminder: {{.Data.TaskTitle}}",
			HTMLBody: `
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Reminder</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .alert { background-color: #fff3cd; border: 1px solid #ffeaa7; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 14px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <p>Hi {{.Data.Recipient}},</p>
        <div class="alert">
            <strong>{{.Data.TaskTitle}}</strong>
            {{if .Data.Message}}<p>{{.Data.Message}}</p>{{end}}
            {{if .Data.DueDate}}<p>Due: {{.Data.DueDate.Format "January 2, 2006 at 3:04 PM"}}</p>{{end}}
        </div>
        <div class="footer">
            <p>The {{.AppName}} Team</p>
        </div>
    </div>
</body>
</html>`,
			TextBody: `Hi {{.Data.Recipient}},

Reminder: {{.Data.TaskTitle}}
{{if .Data.Message}}
{{.Data.Message}}
{{end}}{{if .Data.DueDate}}
Due: {{.Data.DueDate.Format "January 2, 2006 at 3:04 PM"}}
{{end}}
The {{.AppName}} Team`,
		},
	}
}
