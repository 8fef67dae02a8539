package email

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	mail "github.com/go-mail/mail/v2"

	"docreview/internal/config"
)

// Sender delivers a single message to a set of recipients.
type Sender interface {
	Send(to []string, subject, htmlBody, textBody string) error
}

// NopSender discards every message. It is used when SMTP is not configured.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send([]string, string, string, string) error { return nil }

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer *mail.Dialer
}

// NewSMTPSender creates an SMTP sender from configuration.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{
		ServerName: cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	// NewDialer turns on implicit TLS for port 465; SMTP_TLS overrides it.
	switch cfg.SMTPTLS {
	case "tls":
		d.SSL = true
	case "none":
		d.SSL = false
		d.StartTLSPolicy = mail.NoStartTLS
	default: // "starttls"
		d.SSL = false
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}

	from := cfg.SMTPFrom
	if cfg.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SMTPFromName, cfg.SMTPFrom)
	}

	return &SMTPSender{from: from, dialer: d}
}

// Send builds a multipart/alternative message and delivers it.
func (s *SMTPSender) Send(to []string, subject, htmlBody, textBody string) error {
	if len(to) == 0 {
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
		if htmlBody != "" {
			m.AddAlternative("text/html", htmlBody)
		}
	} else {
		m.SetBody("text/html", htmlBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// NewSender returns an SMTP sender when email is configured, NopSender otherwise.
func NewSender(cfg *config.Config) Sender {
	if !cfg.IsEmailEnabled() {
		slog.Info("email notifications disabled (SMTP not configured)")
		return NopSender{}
	}
	slog.Info("email notifications enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort, "tls", cfg.SMTPTLS)
	return NewSMTPSender(cfg)
}
