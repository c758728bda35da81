// pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"
	"text/template"
)

// SMTPMailer implements Mailer using SMTP
type SMTPMailer struct {
	config    *Config
	templates *Templates
	auth      smtp.Auth
}

type templateData struct {
	AppName string
	Data    interface{}
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config *Config) *SMTPMailer {
	var auth smtp.Auth
	if config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)
	}
	if config.AppName == "" {
		config.AppName = "ErmakPlan"
	}

	return &SMTPMailer{
		config:    config,
		templates: NewTemplates(),
		auth:      auth,
	}
}

// SendReport mails a report
func (s *SMTPMailer) SendReport(ctx context.Context, to string, report ReportData) error {
	return s.sendEmail(ctx, to, s.templates.Report, report)
}

// SendReminder mails a due reminder
func (s *SMTPMailer) SendReminder(ctx context.Context, to string, reminder ReminderData) error {
	return s.sendEmail(ctx, to, s.templates.Reminder, reminder)
}

func (s *SMTPMailer) sendEmail(ctx context.Context, to string, tmpl EmailTemplate, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	td := templateData{AppName: s.config.AppName, Data: data}

	subject, err := render(tmpl.Subject, td)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err := render(tmpl.HTMLBody, td)
	if err != nil {
		return fmt.Errorf("render HTML body: %w", err)
	}
	textBody, err := render(tmpl.TextBody, td)
	if err != nil {
		return fmt.Errorf("render text body: %w", err)
	}

	message := buildMIMEMessage(
		s.config.FromEmail,
		s.config.FromName,
		to,
		subject,
		textBody,
		htmlBody,
		generateBoundary(),
	)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, s.auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func render(text string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func generateBoundary() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// buildMIMEMessage builds a MIME email message with both text and HTML parts
func buildMIMEMessage(from, fromName, to, subject, textBody, htmlBody, boundary string) []byte {
	message := fmt.Sprintf(`From: %s <%s>
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="%s"

--%s
Content-Type: text/plain; charset=UTF-8
Content-Transfer-Encoding: 8bit

%s

--%s
Content-Type: text/html; charset=UTF-8
Content-Transfer-Encoding: 8bit

%s

--%s--
`, fromName, from, to, subject, boundary, boundary, textBody, boundary, htmlBody, boundary)

	return []byte(message)
}
