// Package notify sends best-effort account notifications. Failures are
// logged on their own channel and never block or fail the operation that
// triggered them.
package notify

import (
	"fmt"
	"log"
	"net/smtp"

	"aizeeno/internal/model"
)

// Notifier delivers account lifecycle notifications.
type Notifier interface {
	Welcome(user model.UserView) error
}

// Dispatch runs a notification on its own goroutine. Errors and panics are
// logged and go no further.
func Dispatch(n Notifier, user model.UserView) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notify: panic delivering welcome to %s: %v", user.Username, r)
			}
		}()
		if err := n.Welcome(user); err != nil {
			log.Printf("notify: welcome to %s failed: %v", user.Username, err)
		}
	}()
}

// SMTPNotifier sends notifications over SMTP with STARTTLS.
type SMTPNotifier struct {
	host string
	port string
	user string
	pass string
	from string
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier builds an SMTP notifier.
func NewSMTPNotifier(host, port, user, pass, from string) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, user: user, pass: pass, from: from}
}

// Welcome sends the signup welcome email. Passwords are never included.
func (n *SMTPNotifier) Welcome(user model.UserView) error {
	if user.Email == "" {
		return nil
	}

	name := user.Name
	if name == "" {
		name = user.Username
	}
	body := fmt.Sprintf("Hello %s,\r\n\r\n"+
		"Thanks for signing up to Aizeeno. Here are your account details:\r\n\r\n"+
		"Username: %s\r\nEmail: %s\r\n\r\n"+
		"For your security we do not send your password by email. If you need to reset your password, use the app's account settings.\r\n\r\n"+
		"Thanks and welcome!\r\nAizeeno team\r\n",
		name, user.Username, user.Email)

	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: Welcome to Aizeeno!\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n%s", user.Email, n.from, body))

	auth := smtp.PlainAuth("", n.user, n.pass, n.host)
	if err := smtp.SendMail(n.host+":"+n.port, auth, n.from, []string{user.Email}, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

// NopNotifier is used when SMTP is not configured.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

// Welcome does nothing.
func (NopNotifier) Welcome(model.UserView) error { return nil }
