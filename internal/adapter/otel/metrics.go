package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
)

const meterName = "eventora"

// Metrics holds the booking core's metric instruments.
type Metrics struct {
	ReservationsCreated   metric.Int64Counter
	ReservationConflicts  metric.Int64Counter
	ReservationsCancelled metric.Int64Counter
	PackageConsumed       metric.Int64Counter
	PackageRefunded       metric.Int64Counter
	AuditFailures         metric.Int64Counter
	EventPublishFailures  metric.Int64Counter
	SlotsDuration         metric.Float64Histogram
}

// NewMetrics creates all instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.ReservationsCreated, "eventora.reservations.created", "Reservations committed"},
		{&m.ReservationConflicts, "eventora.reservations.conflicts", "Bookings rejected because the slot was taken"},
		{&m.ReservationsCancelled, "eventora.reservations.cancelled", "Reservations cancelled"},
		{&m.PackageConsumed, "eventora.packages.consumed", "Package sessions consumed"},
		{&m.PackageRefunded, "eventora.packages.refunded", "Package sessions refunded"},
		{&m.AuditFailures, "eventora.audit.failures", "Audit entries that could not be recorded"},
		{&m.EventPublishFailures, "eventora.events.publish_failures", "Domain events that could not be published"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	m.SlotsDuration, err = meter.Float64Histogram("eventora.availability.duration_seconds",
		metric.WithDescription("Time to compute available slots"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// AuditFailed counts a swallowed audit failure. Its signature matches
// scope.WithAuditFailureHook.
func (m *Metrics) AuditFailed(ctx context.Context, entity audit.Entity) {
	m.AuditFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", string(entity))))
}

// Tenant returns the attribute option carrying a tenant id.
func Tenant(tenantID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tenant.id", tenantID))
}
