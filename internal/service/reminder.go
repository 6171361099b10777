package service

import (
	"context"
	"errors"
	"log/slog"

	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
	"github.com/FerDeGante/Eventora-sub000/internal/port/reminder"
)

// ReminderService handles due reminders. The worker binds the reminder's
// tenant into ctx before calling it.
type ReminderService struct {
	store  database.Store
	events *EventDispatcher
}

var _ reminder.Handler = (*ReminderService)(nil)

// NewReminderService creates a ReminderService.
func NewReminderService(store database.Store, events *EventDispatcher) *ReminderService {
	return &ReminderService{store: store, events: events}
}

// HandleReminder publishes the reminder of a still-active reservation.
// Reminders of deleted, cancelled or rescheduled reservations are dropped.
func (s *ReminderService) HandleReminder(ctx context.Context, rem reminder.Reminder) (err error) {
	ctx, span := cfotel.StartReminderSpan(ctx, rem.TenantID, rem.ReservationID)
	defer func() { cfotel.End(span, err) }()

	r, err := s.store.GetReservation(ctx, rem.ReservationID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.InfoContext(ctx, "reminder dropped: reservation gone", "reservation_id", rem.ReservationID)
		return nil
	}
	if err != nil {
		return err
	}
	if !r.Active() || !r.StartAt.Equal(rem.StartAt) {
		slog.InfoContext(ctx, "reminder dropped", "reservation_id", r.ID, "status", string(r.Status))
		return nil
	}
	return s.events.ReservationReminder(ctx, r)
}
