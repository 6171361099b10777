package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/port/auditlog"
)

// Recorder writes audit entries to audit_logs. The table is exempt from
// tenant scoping, so it writes through the pool rather than a Store.
type Recorder struct {
	pool *pgxpool.Pool
}

var (
	_ auditlog.Recorder = (*Recorder)(nil)
	_ auditlog.Reader   = (*Recorder)(nil)
)

// NewRecorder creates a Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

func (r *Recorder) Record(ctx context.Context, e audit.Entry) error {
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, tenant_id, actor_id, entity, entity_id, op, fields, request_id, ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TenantID, e.ActorID, string(e.Entity), e.EntityID, string(e.Op), fields, e.RequestID, e.IP, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit %s %s: %w", e.Entity, e.EntityID, err)
	}
	return nil
}

// ListAudit returns up to limit entries of tenantID, newest first.
func (r *Recorder) ListAudit(ctx context.Context, tenantID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, actor_id, entity, entity_id, op, fields, request_id, ip, created_at
		 FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return collect(rows, func(row scannable) (audit.Entry, error) {
		var e audit.Entry
		var entity, op string
		err := row.Scan(&e.ID, &e.TenantID, &e.ActorID, &entity, &e.EntityID, &op, &e.Fields, &e.RequestID, &e.IP, &e.CreatedAt)
		e.Entity, e.Op = audit.Entity(entity), audit.Op(op)
		return e, err
	})
}
