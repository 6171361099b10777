// Package scope confines persistence to the caller's tenant.
//
// Store adapters consult a Guard before every operation on a tenant-owned
// entity: Read yields the tenant every filter is intersected with, Write
// yields the tenant stamped on created rows and required on updated ones.
// Mutations are collected in a Journal and handed to the audit recorder
// once the enclosing transaction has committed.
package scope

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/auditlog"
)

// Guard enforces tenant scoping and dispatches audit entries.
type Guard struct {
	allowPayloadTenant bool
	recorder           auditlog.Recorder
	logger             *slog.Logger
	onAuditFailure     func(ctx context.Context, entity audit.Entity)
	now                func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithPayloadTenant enables the bootstrap fallback that accepts the tenant
// id carried by a write payload when no tenant is bound.
func WithPayloadTenant(allow bool) Option {
	return func(g *Guard) { g.allowPayloadTenant = allow }
}

// WithRecorder sets the audit recorder. Without one, mutations are not
// audited.
func WithRecorder(r auditlog.Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// WithLogger sets the logger used for swallowed audit failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithAuditFailureHook registers a callback run for every failed audit
// write, typically a metric counter.
func WithAuditFailureHook(fn func(ctx context.Context, entity audit.Entity)) Option {
	return func(g *Guard) { g.onAuditFailure = fn }
}

// NewGuard creates a Guard.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Read returns the tenant a read of entity must be filtered by. Exempt
// entities return "".
func (g *Guard) Read(ctx context.Context, entity audit.Entity) (string, error) {
	if entity.Exempt() {
		return "", nil
	}
	c, err := tenant.Require(ctx)
	if err != nil {
		return "", err
	}
	return c.TenantID, nil
}

// Write returns the tenant a mutating op on entity runs under.
//
// The bound tenant wins. A payload naming a different tenant is rejected:
// for creates as a tenant mismatch, for updates as an attempt to move the
// record. Without a bound tenant the payload tenant is used only when the
// bootstrap fallback is enabled.
func (g *Guard) Write(ctx context.Context, entity audit.Entity, op audit.Op, payloadTenant string) (string, error) {
	if entity.Exempt() {
		return payloadTenant, nil
	}
	if c, ok := tenant.Current(ctx); ok && c.TenantID != "" {
		if payloadTenant != "" && payloadTenant != c.TenantID {
			if op == audit.OpCreate || op == audit.OpCreateMany {
				return "", domain.ErrTenantMismatch
			}
			return "", domain.ErrTenantChange
		}
		return c.TenantID, nil
	}
	if g.allowPayloadTenant && payloadTenant != "" {
		return payloadTenant, nil
	}
	return "", domain.ErrTenantRequiredForWrite
}

// CheckUnchanged rejects a write that would move a record from current to
// requested. An empty requested tenant leaves the record where it is.
func CheckUnchanged(current, requested string) error {
	if requested != "" && requested != current {
		return domain.ErrTenantChange
	}
	return nil
}

// Journal buffers audit entries until Flush. It is safe for concurrent use.
type Journal struct {
	g       *Guard
	mu      sync.Mutex
	entries []audit.Entry
}

// Journal starts an empty journal.
func (g *Guard) Journal() *Journal {
	return &Journal{g: g}
}

// Add buffers an entry for a successful mutation. resultID and filterID
// feed audit.EntityID; obj supplies the allow-listed fields and may be nil.
func (j *Journal) Add(ctx context.Context, tenantID string, entity audit.Entity, op audit.Op, resultID, filterID string, obj audit.Auditable) {
	if entity.Exempt() || !op.Mutating() || j.g.recorder == nil {
		return
	}
	e := audit.Entry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Entity:    entity,
		EntityID:  audit.EntityID(resultID, filterID, op),
		Op:        op,
		CreatedAt: j.g.now().UTC(),
	}
	if obj != nil {
		e.Fields = obj.AuditFields()
	}
	if c, ok := tenant.Current(ctx); ok {
		e.ActorID = c.ActorID
		e.RequestID = c.RequestID
		e.IP = c.IP
	}
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

// Len returns the number of buffered entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Discard drops buffered entries, for a rolled-back transaction.
func (j *Journal) Discard() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Flush records buffered entries. Recorder failures are logged and counted,
// never returned: the mutation they describe has already committed.
func (j *Journal) Flush(ctx context.Context) {
	j.mu.Lock()
	entries := j.entries
	j.entries = nil
	j.mu.Unlock()

	for i := range entries {
		j.g.record(ctx, &entries[i])
	}
}

func (g *Guard) record(ctx context.Context, e *audit.Entry) {
	// The caller may already be cancelled once the transaction committed.
	ctx = context.WithoutCancel(ctx)
	if err := g.recorder.Record(ctx, *e); err != nil {
		g.logger.WarnContext(ctx, "audit record failed",
			"entity", string(e.Entity), "entity_id", e.EntityID, "op", string(e.Op), "error", err)
		if g.onAuditFailure != nil {
			g.onAuditFailure(ctx, e.Entity)
		}
	}
}
