// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer sends account email. Implementations must be safe for concurrent
// use.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, username, token string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host    string
	port    int
	from    string
	auth    smtp.Auth
	baseURL string
	log     *slog.Logger
}

// NewSMTPMailer creates a mailer. username/password may be empty for an
// unauthenticated relay.
func NewSMTPMailer(host string, port int, from, username, password, baseURL string, log *slog.Logger) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SMTPMailer{host: host, port: port, from: from, auth: auth, baseURL: baseURL, log: log}
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/confirm?token=%s", m.baseURL, token)
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Confirm your account\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n"+
		"Hi %s,\r\n\r\nConfirm your account by visiting:\r\n%s\r\n",
		m.from, to, username, link)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", to, err)
	}
	m.log.InfoContext(ctx, "confirmation email sent", slog.String("to", to))
	return nil
}

// NopMailer discards all mail. Used in tests and local development.
type NopMailer struct{}

func (NopMailer) SendConfirmation(ctx context.Context, to, username, token string) error {
	return nil
}
