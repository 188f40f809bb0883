// Package notify mails the run summary with the artifacts attached. A
// notification is best-effort: the run's exit code never depends on SMTP.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/models"
)

type Mailer struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

func New(cfg config.EmailConfig, logger *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger.With("component", "notify")}
}

// Send emails the summary. Attachments that do not exist on disk are
// skipped; an unconfigured mailer skips the send entirely.
func (m *Mailer) Send(ctx context.Context, summary models.RunSummary, attachments []string) error {
	if !m.cfg.Configured() {
		m.logger.Info("email settings not configured, skipping notification")
		return nil
	}

	body, err := renderBody(summary)
	if err != nil {
		return fmt.Errorf("failed to render mail body: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject(m.cfg.Subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("skipping missing attachment", "path", path)
			continue
		}
		msg.AttachFile(path)
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username()),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	m.logger.Info("notification sent", "to", m.cfg.To, "attachments", len(attachments))
	return nil
}

func (m *Mailer) username() string {
	if m.cfg.Username != "" {
		return m.cfg.Username
	}
	return m.cfg.From
}

func renderBody(summary models.RunSummary) (string, error) {
	payload := map[string]interface{}{
		"total_rows": summary.Records,
		"summary":    summary,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
