package mail

import (
	"context"
	"fmt"
	"mime"
	netmail "net/mail"
	"net/smtp"
	"strings"

	"globetrackr/api/internal/config"
)

// Sender delivers notification emails. The auth service only depends on
// this interface; delivery mechanics stay out of the core.
type Sender interface {
	Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error
}

// SMTPSender sends multipart text+html mail through a configured SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

const mixedBoundary = "gtmail-alt-boundary"

func (s *SMTPSender) Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mixedBoundary)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", mixedBoundary)
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(textBody)
	msg.WriteString("\r\n")

	if htmlBody != "" {
		fmt.Fprintf(&msg, "--%s\r\n", mixedBoundary)
		msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		msg.WriteString(htmlBody)
		msg.WriteString("\r\n")
	}
	fmt.Fprintf(&msg, "--%s--\r\n", mixedBoundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, envelopeFrom(s.cfg.From), []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// envelopeFrom extracts the bare address from a From header value such as
// "Trips Support <support@example.com>" for use as the SMTP envelope
// sender. The relay needs a plain address in MAIL FROM regardless of
// whether the connection is authenticated.
func envelopeFrom(from string) string {
	if addr, err := netmail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return from
}
