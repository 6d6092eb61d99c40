// Package mail sends group lifecycle notifications over SMTP. Delivery
// is best-effort; callers log failures and continue.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/owaso30/ManualApp/internal/config"
)

// Sender delivers group lifecycle notifications.
type Sender interface {
	SendJoinRequestNotification(ctx context.Context, to, groupName, requesterName string) error
	SendJoinProcessedNotification(ctx context.Context, to, groupName string, approved bool) error
}

// SMTPSender implements Sender using net/smtp plain auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Configured reports whether an SMTP host is set.
func (s *SMTPSender) Configured() bool {
	return s.cfg.Host != ""
}

// SendJoinRequestNotification tells a group owner about a new join request.
func (s *SMTPSender) SendJoinRequestNotification(ctx context.Context, to, groupName, requesterName string) error {
	subject := fmt.Sprintf("New join request for %s", groupName)
	body := fmt.Sprintf("%s has requested to join your group %q. Review the request in the group management page.", requesterName, groupName)
	return s.send(ctx, to, subject, body)
}

// SendJoinProcessedNotification tells a requester the outcome of their request.
func (s *SMTPSender) SendJoinProcessedNotification(ctx context.Context, to, groupName string, approved bool) error {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	subject := fmt.Sprintf("Your request to join %s was %s", groupName, outcome)
	body := fmt.Sprintf("Your request to join the group %q has been %s.", groupName, outcome)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	if !s.Configured() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
