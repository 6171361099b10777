package scope

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
)

type recorderStub struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *recorderStub) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

type fields map[string]any

func (f fields) AuditFields() map[string]any { return f }

func bound(id string) context.Context {
	return tenant.MustBind(context.Background(), tenant.Context{TenantID: id, ActorID: "actor-1", RequestID: "req-1", IP: "10.0.0.1"})
}

func TestReadRequiresTenant(t *testing.T) {
	g := NewGuard()
	if _, err := g.Read(context.Background(), audit.EntityReservation); !errors.Is(err, domain.ErrTenantContextMissing) {
		t.Fatalf("expected missing context, got %v", err)
	}
	got, err := g.Read(bound("clinic-a"), audit.EntityReservation)
	if err != nil || got != "clinic-a" {
		t.Fatalf("Read = %q, %v", got, err)
	}
}

func TestWriteWithoutTenant(t *testing.T) {
	g := NewGuard()
	_, err := g.Write(context.Background(), audit.EntityBranch, audit.OpCreate, "clinic-a")
	if !errors.Is(err, domain.ErrTenantRequiredForWrite) {
		t.Fatalf("expected write rejection, got %v", err)
	}
	if err.Error() != "Tenant context is required for write operations" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWritePayloadFallback(t *testing.T) {
	g := NewGuard(WithPayloadTenant(true))
	got, err := g.Write(context.Background(), audit.EntityBranch, audit.OpCreate, "clinic-a")
	if err != nil || got != "clinic-a" {
		t.Fatalf("Write = %q, %v", got, err)
	}
	if _, err := g.Write(context.Background(), audit.EntityBranch, audit.OpCreate, ""); !errors.Is(err, domain.ErrTenantRequiredForWrite) {
		t.Fatalf("empty payload must still fail, got %v", err)
	}
}

func TestWriteInjectsBoundTenant(t *testing.T) {
	g := NewGuard()
	got, err := g.Write(bound("clinic-a"), audit.EntityService, audit.OpCreate, "")
	if err != nil || got != "clinic-a" {
		t.Fatalf("Write = %q, %v", got, err)
	}
}

func TestWriteRejectsForeignPayload(t *testing.T) {
	g := NewGuard(WithPayloadTenant(true))
	ctx := bound("clinic-a")
	if _, err := g.Write(ctx, audit.EntityService, audit.OpCreate, "clinic-b"); !errors.Is(err, domain.ErrTenantMismatch) {
		t.Fatalf("create: expected mismatch, got %v", err)
	}
	_, err := g.Write(ctx, audit.EntityService, audit.OpUpdate, "clinic-b")
	if !errors.Is(err, domain.ErrTenantChange) {
		t.Fatalf("update: expected tenant change, got %v", err)
	}
	if err.Error() != "Cannot change clinic for existing record" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestExemptEntitiesBypass(t *testing.T) {
	g := NewGuard()
	for _, e := range []audit.Entity{audit.EntityAuditLog, audit.EntityOneTimeToken} {
		if _, err := g.Read(context.Background(), e); err != nil {
			t.Fatalf("%s read: %v", e, err)
		}
		if _, err := g.Write(context.Background(), e, audit.OpCreate, ""); err != nil {
			t.Fatalf("%s write: %v", e, err)
		}
	}
}

func TestCheckUnchanged(t *testing.T) {
	if err := CheckUnchanged("a", ""); err != nil {
		t.Fatal(err)
	}
	if err := CheckUnchanged("a", "a"); err != nil {
		t.Fatal(err)
	}
	if err := CheckUnchanged("a", "b"); !errors.Is(err, domain.ErrTenantChange) {
		t.Fatalf("expected tenant change, got %v", err)
	}
}

func TestJournalFlushesAfterCommit(t *testing.T) {
	rec := &recorderStub{}
	g := NewGuard(WithRecorder(rec))
	ctx := bound("clinic-a")

	j := g.Journal()
	j.Add(ctx, "clinic-a", audit.EntityReservation, audit.OpCreate, "r1", "", fields{"status": "confirmed"})
	j.Add(ctx, "clinic-a", audit.EntityTemplate, audit.OpDeleteMany, "", "", nil)
	j.Add(ctx, "clinic-a", audit.EntityReservation, audit.OpRead, "r1", "", nil)
	j.Add(ctx, "", audit.EntityAuditLog, audit.OpCreate, "a1", "", nil)

	if len(rec.entries) != 0 {
		t.Fatal("entries must not be recorded before Flush")
	}
	if j.Len() != 2 {
		t.Fatalf("expected 2 buffered entries, got %d", j.Len())
	}
	j.Flush(ctx)

	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 recorded entries, got %d", len(rec.entries))
	}
	first := rec.entries[0]
	if first.EntityID != "r1" || first.ActorID != "actor-1" || first.RequestID != "req-1" || first.IP != "10.0.0.1" {
		t.Fatalf("unexpected entry %+v", first)
	}
	if first.Fields["status"] != "confirmed" {
		t.Fatalf("fields not captured: %+v", first.Fields)
	}
	if rec.entries[1].EntityID != audit.BulkEntityID {
		t.Fatalf("bulk delete should record sentinel, got %q", rec.entries[1].EntityID)
	}
}

func TestJournalDiscard(t *testing.T) {
	rec := &recorderStub{}
	g := NewGuard(WithRecorder(rec))
	j := g.Journal()
	j.Add(bound("a"), "a", audit.EntityBranch, audit.OpCreate, "b1", "", nil)
	j.Discard()
	j.Flush(context.Background())
	if len(rec.entries) != 0 {
		t.Fatal("discarded entries were recorded")
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	rec := &recorderStub{err: errors.New("disk full")}
	var failures int
	g := NewGuard(WithRecorder(rec), WithAuditFailureHook(func(context.Context, audit.Entity) { failures++ }))

	j := g.Journal()
	j.Add(bound("a"), "a", audit.EntityBranch, audit.OpCreate, "b1", "", nil)
	j.Flush(bound("a"))

	if failures != 1 {
		t.Fatalf("expected 1 counted failure, got %d", failures)
	}
}
