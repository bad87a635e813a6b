package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
)

// Sender submits one HTML message per report run over plain SMTP. No mail
// library is involved; a single submission per run does not need one.
type Sender struct {
	Host     string
	Port     string
	Username string
	Password string
}

// FromEnv builds a sender from SMTP_HOST, SMTP_PORT, SMTP_USERNAME and
// SMTP_PASSWORD. Port defaults to 587.
func FromEnv() Sender {
	s := Sender{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:     strings.TrimSpace(os.Getenv("SMTP_PORT")),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	if s.Port == "" {
		s.Port = "587"
	}
	return s
}

// Send submits the HTML body to every recipient in one message. Credentials
// are optional: an empty username skips authentication (local relay).
func (s Sender) Send(from string, to []string, subject, htmlBody string) error {
	if s.Host == "" {
		return fmt.Errorf("SMTP_HOST is not set")
	}
	if from == "" || len(to) == 0 {
		return fmt.Errorf("email from/to not configured")
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	msg := Message(from, to, subject, htmlBody)
	addr := net.JoinHostPort(s.Host, s.Port)
	if err := smtp.SendMail(addr, auth, from, to, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

// Message assembles the RFC 5322 bytes for one HTML email.
func Message(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
