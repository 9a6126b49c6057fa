package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/domain/emaillog"
	"github.com/kaupskip/email-service/internal/core/ports"
)

// MailerConfig holds mailer configuration
type MailerConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ServiceName    string
	SiteURL        string
	SendTimeout    time.Duration
}

// Mailer implements the ports.Mailer interface on top of SendGrid. Every send
// outcome is logged and recorded in the durable send log; failures are
// reported through the result, never raised.
type Mailer struct {
	config    *MailerConfig
	logger    *logrus.Logger
	client    *sendgrid.Client
	logRepo   ports.EmailLogRepository
	templates map[ports.NotificationKind]*template.Template
}

// NewMailer creates a new SendGrid-backed mailer instance
func NewMailer(config *MailerConfig, logRepo ports.EmailLogRepository, logger *logrus.Logger) (ports.Mailer, error) {
	client := sendgrid.NewSendClient(config.SendGridAPIKey)

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	return &Mailer{
		config:    config,
		logger:    logger,
		client:    client,
		logRepo:   logRepo,
		templates: templates,
	}, nil
}

// loadTemplates loads one template per notification kind from templates/email
func loadTemplates() (map[ports.NotificationKind]*template.Template, error) {
	templates := make(map[ports.NotificationKind]*template.Template)

	templateDir := "templates/email"

	kinds := []ports.NotificationKind{
		ports.KindVerification,
		ports.KindWelcome,
		ports.KindSubscriptionReceipt,
		ports.KindSubscriptionCancelled,
		ports.KindAccountChange,
		ports.KindTrialExpired,
	}

	for _, kind := range kinds {
		file := string(kind) + ".html"
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		templates[kind] = tmpl
	}

	return templates, nil
}

func (m *Mailer) subject(kind ports.NotificationKind, data map[string]interface{}) string {
	name := m.config.ServiceName
	switch kind {
	case ports.KindVerification:
		return fmt.Sprintf("Verify Your Email - %s", name)
	case ports.KindWelcome:
		return fmt.Sprintf("Welcome to the %s Family!", name)
	case ports.KindSubscriptionReceipt:
		if tier, ok := data["tier"].(string); ok && tier != "" {
			return fmt.Sprintf("Your %s %s Plan Receipt", name, tier)
		}
		return fmt.Sprintf("Your %s Plan Receipt", name)
	case ports.KindSubscriptionCancelled:
		return fmt.Sprintf("We'll Miss You at %s", name)
	case ports.KindAccountChange:
		return fmt.Sprintf("Your %s Account Update", name)
	case ports.KindTrialExpired:
		return fmt.Sprintf("Your %s Trial Has Expired", name)
	default:
		return name
	}
}

// renderTemplate renders the template for a notification kind
func (m *Mailer) renderTemplate(kind ports.NotificationKind, intent ports.NotificationIntent) (string, error) {
	tmpl, exists := m.templates[kind]
	if !exists {
		return "", fmt.Errorf("no template for notification kind %s", kind)
	}

	context := map[string]interface{}{
		"service_name": m.config.ServiceName,
		"site_url":     m.config.SiteURL,
		"email":        intent.Recipient,
		"data":         intent.Data,
		"current_year": time.Now().Year(),
	}
	for k, v := range intent.Data {
		context[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", kind, err)
	}

	return buf.String(), nil
}

// Send attempts delivery and reports the outcome. The SendGrid call is bounded
// by the configured send timeout so a slow provider cannot stall the caller.
func (m *Mailer) Send(ctx context.Context, intent ports.NotificationIntent) ports.SendResult {
	htmlContent, err := m.renderTemplate(intent.Kind, intent)
	if err != nil {
		m.logOutcome(ctx, intent, false, err)
		return ports.SendResult{Delivered: false}
	}

	from := mail.NewEmail(m.config.FromName, m.config.FromEmail)
	recipient := mail.NewEmail("", intent.Recipient)
	subject := m.subject(intent.Kind, intent.Data)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	sendCtx := ctx
	if m.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, m.config.SendTimeout)
		defer cancel()
	}

	response, err := m.client.SendWithContext(sendCtx, message)
	if err != nil {
		m.logOutcome(ctx, intent, false, err)
		return ports.SendResult{Delivered: false}
	}
	if response.StatusCode >= 300 {
		m.logOutcome(ctx, intent, false, fmt.Errorf("sendgrid returned status %d", response.StatusCode))
		return ports.SendResult{Delivered: false}
	}

	m.logOutcome(ctx, intent, true, nil)
	return ports.SendResult{Delivered: true}
}

// logOutcome writes the structured log line, the metric and the durable send
// log entry for one attempt. Send-log persistence must never fail a send.
func (m *Mailer) logOutcome(ctx context.Context, intent ports.NotificationIntent, delivered bool, sendErr error) {
	status := emaillog.StatusSent
	if !delivered {
		status = emaillog.StatusFailed
	}
	emailsTotal.WithLabelValues(string(intent.Kind), string(status)).Inc()

	if m.logger != nil {
		fields := logrus.Fields{"to": intent.Recipient, "kind": intent.Kind, "status": status}
		if delivered {
			m.logger.WithFields(fields).Info("email sent")
		} else {
			m.logger.WithFields(fields).WithError(sendErr).Error("failed to send email")
		}
	}

	if m.logRepo == nil {
		return
	}

	entry := &emaillog.EmailLog{
		ID:        uuid.New(),
		EmailTo:   intent.Recipient,
		EmailType: string(intent.Kind),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if delivered {
		now := time.Now().UTC()
		entry.SentAt = &now
	} else if sendErr != nil {
		entry.Metadata = map[string]interface{}{"error": sendErr.Error()}
	}

	if err := m.logRepo.Create(ctx, entry); err != nil && m.logger != nil {
		m.logger.WithFields(logrus.Fields{"to": intent.Recipient, "kind": intent.Kind}).WithError(err).Warn("failed to persist email log entry")
	}
}
