package mail

import (
	"context"
	"fmt"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// Sender is the outbound mail surface the auth flows depend on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	Body     string
	HTMLBody string
}

// Mailer sends mail over SMTP via gomail. When SMTP is not configured the
// mailer logs the message instead of dialing so dev environments stay
// self-contained.
type Mailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
	logg   *logger.Logger
}

// New builds a Mailer from the SMTP configuration.
func New(cfg config.MailConfig, logg *logger.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logg: logg}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Send delivers a single message.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("no recipient specified")
	}

	if m.dialer == nil {
		if m.logg != nil {
			logCtx := m.logg.WithFields(ctx, map[string]any{
				"to":      msg.To,
				"subject": msg.Subject,
			})
			m.logg.Info(logCtx, "smtp disabled, skipping outbound mail")
		}
		return nil
	}

	email := gomail.NewMessage()
	email.SetHeader("From", m.cfg.From)
	email.SetHeader("To", msg.To)
	email.SetHeader("Subject", msg.Subject)
	if msg.HTMLBody != "" {
		email.SetBody("text/html", msg.HTMLBody)
		if msg.Body != "" {
			email.AddAlternative("text/plain", msg.Body)
		}
	} else {
		email.SetBody("text/plain", msg.Body)
	}

	if err := m.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// VerificationCode formats the email carrying an email-verification code.
func VerificationCode(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code),
	}
}

// PasswordReset formats the email carrying a password-reset link token.
func PasswordReset(to, token string) Message {
	return Message{
		To:      to,
		Subject: "Password reset requested",
		Body:    fmt.Sprintf("Use this token to reset your password: %s\nIf you did not request a reset, ignore this message.", token),
	}
}
