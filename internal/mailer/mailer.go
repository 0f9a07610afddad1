package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Provider selects the transport used to deliver mail.
type Provider string

const (
	ProviderResend Provider = "resend"
	ProviderSMTP   Provider = "smtp"
)

var (
	ErrNotConfigured = errors.New("mailer: not configured")
	ErrNoRecipient   = errors.New("mailer: recipient required")
)

// Message is a single outgoing email with HTML and plain-text parts.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Config struct {
	Provider     Provider
	From         string
	ReplyTo      string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	Timeout      time.Duration
}

func ConfigFromEnv() Config {
	p := Provider(strings.ToLower(strings.TrimSpace(os.Getenv("EMAIL_PROVIDER"))))
	if p == "" {
		p = ProviderResend
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return Config{
		Provider:     p,
		From:         strings.TrimSpace(os.Getenv("EMAIL_FROM")),
		ReplyTo:      strings.TrimSpace(os.Getenv("EMAIL_REPLY_TO")),
		ResendAPIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     port,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		Timeout:      15 * time.Second,
	}
}

// Mailer delivers report emails through the configured provider.
type Mailer struct {
	cfg    Config
	resend *resend.Client
	logger *zap.SugaredLogger
}

func New(cfg Config, logger *zap.SugaredLogger) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	m := &Mailer{cfg: cfg, logger: logger}
	if cfg.Provider == ProviderResend && cfg.ResendAPIKey != "" {
		m.resend = resend.NewClient(cfg.ResendAPIKey)
	}
	return m
}

// Configured reports whether a sender address and provider credentials are present.
func (m *Mailer) Configured() bool {
	if m == nil || m.cfg.From == "" {
		return false
	}
	switch m.cfg.Provider {
	case ProviderResend:
		return m.resend != nil
	case ProviderSMTP:
		return m.cfg.SMTPHost != "" && m.cfg.SMTPPort != ""
	default:
		return false
	}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	var err error
	switch m.cfg.Provider {
	case ProviderResend:
		err = m.sendResend(ctx, msg)
	case ProviderSMTP:
		err = m.sendSMTP(ctx, msg)
	default:
		err = fmt.Errorf("mailer: unsupported provider %q", m.cfg.Provider)
	}
	if err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Infow("email sent", "provider", m.cfg.Provider, "subject", msg.Subject)
	}
	return nil
}

func (m *Mailer) sendResend(ctx context.Context, msg Message) error {
	req := &resend.SendEmailRequest{
		From:    m.cfg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if m.cfg.ReplyTo != "" {
		req.ReplyTo = m.cfg.ReplyTo
	}
	sent, err := m.resend.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("mailer: resend: %w", err)
	}
	if m.logger != nil {
		m.logger.Debugw("resend accepted message", "id", sent.Id)
	}
	return nil
}
