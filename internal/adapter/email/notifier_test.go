package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
)

var _ notifier.Notifier = (*Notifier)(nil)

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier(SMTPConfig{Host: "smtp.test"})
	if err := n.Send(context.Background(), notifier.Notification{}); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n := NewNotifier(SMTPConfig{Host: "smtp.test", Port: 2525, From: "bot@clinic.test", To: []string{"desk@clinic.test", "ops@clinic.test"}})
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := n.Send(context.Background(), notifier.Notification{
		TenantID: "clinic-a",
		Title:    "Reservation cancelled",
		Message:  "The 10:00 booking was cancelled",
		Level:    notifier.LevelWarning,
		Source:   "reservations.cancelled",
		Fields:   map[string]string{"status": "cancelled", "reservation": "r-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.test:2525" || len(gotTo) != 2 {
		t.Fatalf("addr %q to %v", gotAddr, gotTo)
	}
	for _, want := range []string{
		"Subject: [Eventora] Warning: Reservation cancelled",
		"To: desk@clinic.test, ops@clinic.test",
		"reservation: r-1\r\nstatus: cancelled",
		"-- reservations.cancelled, clinic clinic-a",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestRegisteredParsesRecipients(t *testing.T) {
	n, err := notifier.New(providerName, map[string]string{"host": "smtp.test", "port": "25", "to": "a@x.test, b@x.test,"})
	if err != nil {
		t.Fatal(err)
	}
	en := n.(*Notifier)
	if en.cfg.Port != 25 || len(en.cfg.To) != 2 {
		t.Fatalf("cfg = %+v", en.cfg)
	}
	if _, err := notifier.New(providerName, map[string]string{"port": "smtp"}); err == nil {
		t.Fatal("expected invalid port error")
	}
}
