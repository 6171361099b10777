// Package notifier defines the port for staff-facing notifications, such as
// posting new bookings to a clinic's admin channel.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	TenantID string            `json:"tenant_id"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Level    string            `json:"level"`
	Source   string            `json:"source"` // event subject, e.g. "reservations.created"
	Fields   map[string]string `json:"fields,omitempty"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
