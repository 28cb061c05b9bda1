// Package mailer sends transactional email over plain SMTP. Local
// development points it at Mailpit; nothing here needs TLS-aware transport
// because the relay lives next to the app.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends mail through a single SMTP relay.
type Mailer struct {
	addr string
	from string
}

// New constructs a mailer for the given host and port.
func New(host string, port int, from string) *Mailer {
	return &Mailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
