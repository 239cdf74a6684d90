package services

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/config"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// NotificationEvent names what happened to a submission.
type NotificationEvent string

const (
	EventAssigned     NotificationEvent = "assigned"
	EventStageEntered NotificationEvent = "stage_entered"
	EventRejected     NotificationEvent = "rejected"
)

// Notifier delivers workflow events to reviewers. Delivery is
// fire-and-forget: callers log failures and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, reviewer *models.Reviewer, sub *models.Submission, event NotificationEvent) error
}

// ============================================================================
// Log Notifier
// ============================================================================

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a Notifier that only logs. Used when SMTP is not
// configured and in tests.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger.Named("notifier")}
}

var _ Notifier = (*logNotifier)(nil)

func (n *logNotifier) Notify(ctx context.Context, reviewer *models.Reviewer, sub *models.Submission, event NotificationEvent) error {
	n.logger.Info("Reviewer notification",
		zap.String("event", string(event)),
		zap.String("reviewer", reviewer.Email),
		zap.String("submission", sub.SubmissionID),
		zap.String("status", string(sub.Status)))
	return nil
}

// ============================================================================
// SMTP Notifier
// ============================================================================

type smtpNotifier struct {
	cfg    config.NotifierConfig
	logger *zap.Logger
}

// NewSMTPNotifier returns a Notifier that emails reviewers through the
// configured SMTP relay.
func NewSMTPNotifier(cfg config.NotifierConfig, logger *zap.Logger) Notifier {
	return &smtpNotifier{cfg: cfg, logger: logger.Named("notifier")}
}

var _ Notifier = (*smtpNotifier)(nil)

func (n *smtpNotifier) Notify(ctx context.Context, reviewer *models.Reviewer, sub *models.Submission, event NotificationEvent) error {
	subject := fmt.Sprintf("[%s] %s", sub.SubmissionID, subjectFor(event))
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nSubmission %s is now in status %q and needs your attention.\r\n",
		reviewer.Name, sub.SubmissionID, sub.Status)
	if event == EventRejected && sub.RejectionReason != nil {
		body += fmt.Sprintf("\r\nRejection reason: %s\r\n", *sub.RejectionReason)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.From, reviewer.Email, subject, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{reviewer.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	n.logger.Debug("Notification email sent",
		zap.String("reviewer", reviewer.Email),
		zap.String("submission", sub.SubmissionID))
	return nil
}

func subjectFor(event NotificationEvent) string {
	switch event {
	case EventAssigned:
		return "New review assignment"
	case EventRejected:
		return "Submission rejected"
	default:
		return "Submission awaiting review"
	}
}
