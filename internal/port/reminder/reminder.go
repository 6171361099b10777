// Package reminder defines the port for scheduling appointment reminders.
package reminder

import (
	"context"
	"time"
)

// Reminder identifies the reservation to remind about. The worker binds
// TenantID into a fresh Tenant Context before touching storage.
type Reminder struct {
	TenantID      string    `json:"tenant_id"`
	ReservationID string    `json:"reservation_id"`
	StartAt       time.Time `json:"start_at"`
}

// Scheduler enqueues a reminder to fire at a given time. At most one
// reminder is pending per reservation.
type Scheduler interface {
	Schedule(ctx context.Context, r Reminder, fireAt time.Time) error
	// Cancel drops the pending reminder of a reservation, if any.
	Cancel(ctx context.Context, reservationID string) error
}

// Handler processes a due reminder.
type Handler interface {
	HandleReminder(ctx context.Context, r Reminder) error
}
