package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "eventora"

// StartSlotsSpan starts a span for an availability computation.
func StartSlotsSpan(ctx context.Context, tenantID, branchID, serviceID, date string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "availability.slots",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("branch.id", branchID),
			attribute.String("service.id", serviceID),
			attribute.String("date", date),
		),
	)
}

// StartBookingSpan starts a span for a reservation write.
func StartBookingSpan(ctx context.Context, op, tenantID, reservationID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "reservation."+op,
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("reservation.id", reservationID),
		),
	)
}

// StartReminderSpan starts a span for a reminder delivery.
func StartReminderSpan(ctx context.Context, tenantID, reservationID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "reminder.send",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("reservation.id", reservationID),
		),
	)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
