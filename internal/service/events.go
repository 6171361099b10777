package service

import (
	"context"
	"encoding/json"
	"log/slog"

	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
	"github.com/FerDeGante/Eventora-sub000/internal/resilience"
)

// EventDispatcher publishes booking events after their transaction has
// committed. Publish failures are logged and counted, never returned.
type EventDispatcher struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
}

// NewEventDispatcher creates a dispatcher. A nil queue disables publishing;
// a nil breaker publishes without one.
func NewEventDispatcher(queue messagequeue.Queue, breaker *resilience.Breaker) *EventDispatcher {
	return &EventDispatcher{queue: queue, breaker: breaker}
}

// SetMetrics enables publish failure counting.
func (d *EventDispatcher) SetMetrics(m *cfotel.Metrics) { d.metrics = m }

func reservationPayload(ctx context.Context, r *reservation.Reservation) messagequeue.ReservationPayload {
	c, _ := tenant.Current(ctx)
	return messagequeue.ReservationPayload{
		TenantID:      r.TenantID,
		ReservationID: r.ID,
		BranchID:      r.BranchID,
		ServiceID:     r.ServiceID,
		ClientID:      r.ClientID,
		ResourceID:    r.ResourceID,
		PackageID:     r.PackageID,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		ActorID:       c.ActorID,
	}
}

func packagePayload(p *userpackage.UserPackage, reservationID string) messagequeue.PackagePayload {
	return messagequeue.PackagePayload{
		TenantID:          p.TenantID,
		PackageID:         p.ID,
		ClientID:          p.ClientID,
		ReservationID:     reservationID,
		SessionsRemaining: p.SessionsRemaining,
		SessionsTotal:     p.SessionsTotal,
	}
}

// ReservationCreated publishes reservations.created.
func (d *EventDispatcher) ReservationCreated(ctx context.Context, r *reservation.Reservation) {
	d.publish(ctx, messagequeue.SubjectReservationCreated, reservationPayload(ctx, r))
}

// ReservationCancelled publishes reservations.cancelled.
func (d *EventDispatcher) ReservationCancelled(ctx context.Context, r *reservation.Reservation) {
	d.publish(ctx, messagequeue.SubjectReservationCancelled, reservationPayload(ctx, r))
}

// ReservationStatusChanged publishes reservations.status.
func (d *EventDispatcher) ReservationStatusChanged(ctx context.Context, r *reservation.Reservation) {
	d.publish(ctx, messagequeue.SubjectReservationStatus, reservationPayload(ctx, r))
}

// ReservationReminder publishes reservations.reminder for the notification
// service that delivers it to the client.
func (d *EventDispatcher) ReservationReminder(ctx context.Context, r *reservation.Reservation) error {
	return d.send(ctx, messagequeue.SubjectReservationReminder, reservationPayload(ctx, r))
}

// PackageConsumed publishes packages.consumed.
func (d *EventDispatcher) PackageConsumed(ctx context.Context, p *userpackage.UserPackage, reservationID string) {
	d.publish(ctx, messagequeue.SubjectPackageConsumed, packagePayload(p, reservationID))
}

// PackageRefunded publishes packages.refunded.
func (d *EventDispatcher) PackageRefunded(ctx context.Context, p *userpackage.UserPackage, reservationID string) {
	d.publish(ctx, messagequeue.SubjectPackageRefunded, packagePayload(p, reservationID))
}

func (d *EventDispatcher) publish(ctx context.Context, subject string, payload any) {
	if err := d.send(ctx, subject, payload); err != nil {
		slog.WarnContext(ctx, "event publish failed", "subject", subject, "error", err)
		if d.metrics != nil {
			d.metrics.EventPublishFailures.Add(ctx, 1, cfotel.Tenant(tenant.IDFromContext(ctx)))
		}
	}
}

func (d *EventDispatcher) send(ctx context.Context, subject string, payload any) error {
	if d == nil || d.queue == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// The booking has committed; a cancelled caller must not drop its event.
	ctx = context.WithoutCancel(ctx)
	if d.breaker == nil {
		return d.queue.Publish(ctx, subject, data)
	}
	return d.breaker.Execute(ctx, func(ctx context.Context) error {
		return d.queue.Publish(ctx, subject, data)
	})
}
