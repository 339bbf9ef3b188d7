package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/liamashdown/whalewatch/internal/whale"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends alerts via email
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
	sendMail sendMailFunc
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

// Send sends the alert via email
func (s *SMTPSender) Send(ctx context.Context, payload *Payload) error {
	if len(s.to) == 0 {
		return fmt.Errorf("send email: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := s.sendMail(addr, auth, s.from, s.to, s.buildMessage(payload)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(payload *Payload) []byte {
	var usd string
	if payload.Event != nil {
		usd = whale.FormatUSD(payload.Event.USDValue())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&b, "Subject: [Whale Alert] %s %s\r\n", stripMarkdown(payload.Title()), usd)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(s.buildEmailBody(payload))
	return []byte(b.String())
}

func (s *SMTPSender) buildEmailBody(payload *Payload) string {
	var b strings.Builder
	b.WriteString("WHALE ALERT\n")
	b.WriteString("═══════════════════════════════════════\n\n")
	b.WriteString(stripMarkdown(payload.Message))
	b.WriteString("\n\n")

	if t, ok := payload.Event.(*whale.Transfer); ok {
		b.WriteString("CLASSIFICATION\n")
		b.WriteString("─────────────────────────────────────\n")
		fmt.Fprintf(&b, "Pattern:        %s\n", whale.Label(string(t.Pattern)))
		fmt.Fprintf(&b, "Type:           %s\n", whale.Label(string(t.TransactionType)))
		fmt.Fprintf(&b, "Inputs:         %d\n", t.InputCount)
		fmt.Fprintf(&b, "Outputs:        %d\n", t.OutputCount)
		for _, a := range t.FromAddresses {
			fmt.Fprintf(&b, "From:           %s (%s)\n", a.Address, a.Entity)
		}
		for _, a := range t.ToAddresses {
			fmt.Fprintf(&b, "To:             %s (%s)\n", a.Address, a.Entity)
		}
		b.WriteString("\n")
	}

	b.WriteString("═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Environment: %s\n", payload.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", payload.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}

func stripMarkdown(s string) string {
	return strings.NewReplacer("**", "", "`", "").Replace(s)
}
