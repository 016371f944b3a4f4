package mailer

import (
	"fmt"
	"io"

	"github.com/thereayou/flasker/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file attached to an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email represents an email message.
type Email struct {
	To          []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers emails.
type Sender interface {
	Send(email Email) error
}

// Mailer sends email over SMTP. Without a configured server it only logs
// what it would have sent.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Mailer {
	m := &Mailer{
		from: fmt.Sprintf("%s <%s>", cfg.SiteName, cfg.OutboundEmail),
		log:  log,
	}
	if cfg.MailServer != "" {
		m.dialer = gomail.NewDialer(cfg.MailServer, cfg.MailPort, cfg.MailUsername, cfg.MailPassword)
	} else {
		log.Warn("MAIL_SERVER not set, emails will only be logged")
	}
	return m
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	if m.dialer == nil {
		m.log.Info("email not sent",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject),
			zap.Int("attachments", len(email.Attachments)),
		)
		return nil
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)
	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}

	for _, a := range email.Attachments {
		data := a.Data
		msg.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
}
