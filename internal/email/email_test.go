package email

import (
	"testing"

	mail "github.com/go-mail/mail/v2"

	"docreview/internal/config"
)

func TestNewSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantNop bool
	}{
		{
			name:    "nop when host is empty",
			cfg:     &config.Config{SMTPFrom: "noreply@example.com"},
			wantNop: true,
		},
		{
			name:    "nop when from is empty",
			cfg:     &config.Config{SMTPHost: "smtp.example.com"},
			wantNop: true,
		},
		{
			name:    "smtp when configured",
			cfg:     &config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "noreply@example.com"},
			wantNop: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, isNop := NewSender(tt.cfg).(NopSender)
			if isNop != tt.wantNop {
				t.Errorf("NewSender() nop = %v, want %v", isNop, tt.wantNop)
			}
		})
	}
}

func TestNewSMTPSender_TLSModes(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		port       int
		wantSSL    bool
		wantPolicy mail.StartTLSPolicy
	}{
		{"starttls on 587", "starttls", 587, false, mail.MandatoryStartTLS},
		{"starttls on 465", "starttls", 465, false, mail.MandatoryStartTLS},
		{"default on 465", "", 465, false, mail.MandatoryStartTLS},
		{"tls on 587", "tls", 587, true, mail.MandatoryStartTLS},
		{"tls on 465", "tls", 465, true, mail.MandatoryStartTLS},
		{"none on 465", "none", 465, false, mail.NoStartTLS},
		{"none on 25", "none", 25, false, mail.NoStartTLS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSMTPSender(&config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: tt.port,
				SMTPFrom: "noreply@example.com",
				SMTPTLS:  tt.mode,
			})
			if s.dialer.SSL != tt.wantSSL {
				t.Errorf("SSL = %v, want %v", s.dialer.SSL, tt.wantSSL)
			}
			if !tt.wantSSL && s.dialer.StartTLSPolicy != tt.wantPolicy {
				t.Errorf("StartTLSPolicy = %v, want %v", s.dialer.StartTLSPolicy, tt.wantPolicy)
			}
			if s.dialer.TLSConfig == nil || s.dialer.TLSConfig.ServerName != "smtp.example.com" {
				t.Error("TLSConfig.ServerName not set to SMTP host")
			}
		})
	}
}

func TestNewSMTPSender_FromName(t *testing.T) {
	s := NewSMTPSender(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPFrom:     "noreply@example.com",
		SMTPFromName: "DocReview",
	})
	if want := "DocReview <noreply@example.com>"; s.from != want {
		t.Errorf("from = %q, want %q", s.from, want)
	}
}

func TestSMTPSender_NoRecipients(t *testing.T) {
	s := NewSMTPSender(&config.Config{SMTPHost: "unreachable.invalid", SMTPFrom: "noreply@example.com"})
	if err := s.Send(nil, "subject", "<p>hi</p>", "hi"); err != nil {
		t.Errorf("Send() with no recipients error = %v, want nil", err)
	}
}

func TestNopSender(t *testing.T) {
	if err := (NopSender{}).Send([]string{"a@example.com"}, "s", "h", "t"); err != nil {
		t.Errorf("NopSender.Send() error = %v", err)
	}
}
