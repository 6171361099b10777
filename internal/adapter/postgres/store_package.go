package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
)

const packageColumns = `id, tenant_id, client_id, name, sessions_total, sessions_remaining,
	valid_from, valid_until, created_at, updated_at`

func scanPackage(row scannable) (userpackage.UserPackage, error) {
	var p userpackage.UserPackage
	err := row.Scan(&p.ID, &p.TenantID, &p.ClientID, &p.Name, &p.SessionsTotal, &p.SessionsRemaining,
		&p.ValidFrom, &p.ValidUntil, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *queries) CreatePackage(ctx context.Context, p userpackage.UserPackage) (*userpackage.UserPackage, error) {
	tid, err := q.guard.Write(ctx, audit.EntityPackage, audit.OpCreate, p.TenantID)
	if err != nil {
		return nil, err
	}
	if p.SessionsTotal <= 0 || p.SessionsRemaining < 0 || p.SessionsRemaining > p.SessionsTotal {
		return nil, domain.Invalid("package sessions must satisfy 0 <= remaining <= total")
	}
	var validFrom *time.Time
	if !p.ValidFrom.IsZero() {
		validFrom = &p.ValidFrom
	}
	out, err := scanPackage(q.db.QueryRow(ctx,
		`INSERT INTO user_packages (tenant_id, client_id, name, sessions_total, sessions_remaining, valid_from, valid_until)
		 SELECT $1, c.id, $3, $4, $5, COALESCE($6, now()), $7 FROM clients c WHERE c.id = $2 AND c.tenant_id = $1
		 RETURNING `+packageColumns,
		tid, p.ClientID, p.Name, p.SessionsTotal, p.SessionsRemaining, validFrom, p.ValidUntil))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidText {
			return nil, fmt.Errorf("create package: %w", domain.ErrClientNotFound)
		}
		return nil, writeErr(err, "create package")
	}
	q.audit(ctx, tid, audit.EntityPackage, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetPackage(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	tid, err := q.guard.Read(ctx, audit.EntityPackage)
	if err != nil {
		return nil, err
	}
	p, err := scanPackage(q.db.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM user_packages WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrPackageNotFound, "get package %s", id)
	}
	return &p, nil
}

func (q *queries) ListPackages(ctx context.Context, clientID string) ([]userpackage.UserPackage, error) {
	tid, err := q.guard.Read(ctx, audit.EntityPackage)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+packageColumns+` FROM user_packages
		 WHERE tenant_id = $1 AND ($2 = '' OR client_id::text = $2)
		 ORDER BY created_at, id`, tid, clientID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return collect(rows, scanPackage)
}

// ConsumePackageSession decrements in a single conditional UPDATE, so two
// concurrent consumers of the last session cannot both succeed. When no row
// qualifies the package is re-read to report why.
func (q *queries) ConsumePackageSession(ctx context.Context, id, clientID string, now time.Time) (*userpackage.UserPackage, error) {
	tid, err := q.guard.Write(ctx, audit.EntityPackage, audit.OpUpdate, "")
	if err != nil {
		return nil, err
	}
	p, err := scanPackage(q.db.QueryRow(ctx,
		`UPDATE user_packages
		 SET sessions_remaining = sessions_remaining - 1, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2 AND client_id::text = $3
		   AND sessions_remaining > 0
		   AND (valid_until IS NULL OR valid_until > $4)
		 RETURNING `+packageColumns,
		id, tid, clientID, now))
	if err == nil {
		q.audit(ctx, tid, audit.EntityPackage, audit.OpUpdate, "", id, &p)
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundWrap(err, domain.ErrPackageNotFound, "consume package %s", id)
	}
	cur, err := q.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cur.CheckConsumable(clientID, now); err != nil {
		return nil, fmt.Errorf("consume package %s: %w", id, err)
	}
	// Qualified on re-read: a concurrent refund landed in between.
	return nil, fmt.Errorf("consume package %s: %w", id, domain.ErrPackageExhausted)
}

func (q *queries) RefundPackageSession(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	tid, err := q.guard.Write(ctx, audit.EntityPackage, audit.OpUpdate, "")
	if err != nil {
		return nil, err
	}
	p, err := scanPackage(q.db.QueryRow(ctx,
		`UPDATE user_packages
		 SET sessions_remaining = LEAST(sessions_remaining + 1, sessions_total), updated_at = now()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING `+packageColumns,
		id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrPackageNotFound, "refund package %s", id)
	}
	q.audit(ctx, tid, audit.EntityPackage, audit.OpUpdate, "", id, &p)
	return &p, nil
}
