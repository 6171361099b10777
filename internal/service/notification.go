package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
)

// NotificationService posts booking events to the staff notifiers.
type NotificationService struct {
	notifiers []notifier.Notifier
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifiers []notifier.Notifier) *NotificationService {
	return &NotificationService{notifiers: notifiers}
}

// Notify sends n to every notifier. Errors are logged and do not stop
// delivery to the others.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	for _, provider := range s.notifiers {
		if err := provider.Send(ctx, n); err != nil {
			slog.WarnContext(ctx, "notification send failed", "provider", provider.Name(), "source", n.Source, "error", err)
			continue
		}
		slog.DebugContext(ctx, "notification sent", "provider", provider.Name(), "source", n.Source)
	}
}

// Subscribe consumes reservation events from queue. The returned function
// cancels every subscription.
func (s *NotificationService) Subscribe(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	subjects := []string{messagequeue.SubjectReservationCreated, messagequeue.SubjectReservationCancelled}
	var cancels []func()
	cancelAll := func() {
		for _, c := range cancels {
			c()
		}
	}
	for _, subject := range subjects {
		cancel, err := queue.Subscribe(ctx, subject, s.HandleEvent)
		if err != nil {
			cancelAll()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		cancels = append(cancels, cancel)
	}
	return cancelAll, nil
}

// HandleEvent turns one reservation event into a notification. Delivery
// failures are not retried.
func (s *NotificationService) HandleEvent(ctx context.Context, subject string, data []byte) error {
	var p messagequeue.ReservationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode %s: %w", subject, err)
	}
	n := notifier.Notification{
		TenantID: p.TenantID,
		Level:    notifier.LevelInfo,
		Source:   subject,
		Fields: map[string]string{
			"reservation": p.ReservationID,
			"branch":      p.BranchID,
			"service":     p.ServiceID,
			"status":      p.Status,
		},
	}
	when := p.StartAt.UTC().Format(time.RFC1123)
	switch subject {
	case messagequeue.SubjectReservationCreated:
		n.Title = "New reservation"
		n.Message = "Booked for " + when
	case messagequeue.SubjectReservationCancelled:
		n.Title = "Reservation cancelled"
		n.Message = "The " + when + " booking was cancelled"
		n.Level = notifier.LevelWarning
	default:
		return nil
	}
	s.Notify(ctx, n)
	return nil
}
