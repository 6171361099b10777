package logger

import (
	"context"
	"log/slog"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
)

type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context, falling back to the
// one carried by the bound Tenant Context. Returns "" if neither is set.
func RequestID(ctx context.Context) string {
	if id, _ := ctx.Value(requestIDKey).(string); id != "" {
		return id
	}
	c, _ := tenant.Current(ctx)
	return c.RequestID
}

// ContextHandler decorates records with request_id, tenant_id and actor_id
// taken from the context passed to the logger.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the context attributes and forwards the record.
func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if ctx != nil {
		if id := RequestID(ctx); id != "" {
			rec.AddAttrs(slog.String("request_id", id))
		}
		if c, ok := tenant.Current(ctx); ok {
			rec.AddAttrs(slog.String("tenant_id", c.TenantID))
			if c.ActorID != "" {
				rec.AddAttrs(slog.String("actor_id", c.ActorID))
			}
		}
	}
	return h.inner.Handle(ctx, rec)
}

// WithAttrs returns a ContextHandler wrapping inner.WithAttrs.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a ContextHandler wrapping inner.WithGroup.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
