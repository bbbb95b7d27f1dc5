package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends plain-text email through a relay using STARTTLS when offered.
type SMTP struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail sendMailFunc
}

func NewSMTP(host string, port int, username, password, from string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (n *SMTP) SendBookingNotification(ctx context.Context, msg Message) error {
	return n.send(ctx, KindBooking, msg)
}

func (n *SMTP) SendReminder(ctx context.Context, msg Message) error {
	return n.send(ctx, KindReminder, msg)
}

func (n *SMTP) send(ctx context.Context, kind Kind, msg Message) error {
	if msg.PatientEmail == "" {
		return deliveryError(kind, msg, ErrNoRecipient)
	}

	raw := n.compose(kind, msg)

	// smtp.SendMail has no context; run it aside so the caller's deadline holds.
	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(n.addr, n.auth, n.from, []string{msg.PatientEmail}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return deliveryError(kind, msg, err)
		}
		return nil
	case <-ctx.Done():
		return deliveryError(kind, msg, ctx.Err())
	}
}

func (n *SMTP) compose(kind Kind, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.PatientEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject(kind, msg))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body(kind, msg), "\n", "\r\n"))
	return []byte(b.String())
}
