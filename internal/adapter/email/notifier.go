// Package email delivers staff notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"slices"
	"strconv"
	"strings"

	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
)

const providerName = "email"

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	To       []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends notifications as plain-text email.
type Notifier struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg, send: smtp.SendMail}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) message(nt *notifier.Notification) []byte {
	var b strings.Builder
	subject := "[Eventora] " + nt.Title
	if nt.Level == notifier.LevelWarning {
		subject = "[Eventora] Warning: " + nt.Title
	}
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n",
		n.cfg.From, strings.Join(n.cfg.To, ", "), subject)
	b.WriteString(nt.Message)
	b.WriteString("\r\n\r\n")

	keys := make([]string, 0, len(nt.Fields))
	for k := range nt.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, nt.Fields[k])
	}
	if nt.Source != "" {
		fmt.Fprintf(&b, "\r\n-- %s, clinic %s\r\n", nt.Source, nt.TenantID)
	}
	return []byte(b.String())
}

// Send mails the notification to every configured recipient. SMTP has no
// context support; ctx is only checked before dialing.
func (n *Notifier) Send(ctx context.Context, nt notifier.Notification) error {
	if n.cfg.Host == "" || len(n.cfg.To) == 0 {
		return notifier.ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	}
	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, n.cfg.To, n.message(&nt)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
