package smtp

import (
	"gopkg.in/gomail.v2"

	"github.com/campus-push/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer returns nil when SMTP is not configured; callers treat that as "email disabled".
func NewMailer(cfg config.SMTP) Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return &mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *mailer) SendEmail(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
