package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/calivra/calivra_bank/internal/config"
)

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier mails the account owner about resolved requests and
// administrative adjustments.
type EmailNotifier struct {
	cfg  config.SMTP
	send sendFunc
}

// NewEmailNotifier returns nil when SMTP is not configured.
func NewEmailNotifier(cfg config.SMTP) *EmailNotifier {
	if cfg.Host == "" {
		return nil
	}
	return &EmailNotifier{cfg: cfg, send: func(e *email.Email, addr string, auth smtp.Auth) error {
		return e.Send(addr, auth)
	}}
}

func (n *EmailNotifier) Send(_ context.Context, message Message) error {
	if n == nil || !strings.Contains(message.Destination, "@") {
		return nil
	}
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{message.Destination}
	e.Subject = message.Subject
	e.Text = []byte(message.Body + "\n\nCalivra Chase Bank")

	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		return fmt.Errorf("send email to %s: %w", message.Destination, err)
	}
	return nil
}
