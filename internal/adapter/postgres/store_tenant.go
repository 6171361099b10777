package postgres

import (
	"context"
	"fmt"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
)

// Tenants are the identity root: these queries are not tenant-scoped.

const tenantColumns = `id, name, slug, enabled, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Enabled, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *queries) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := scanTenant(q.db.QueryRow(ctx,
		`INSERT INTO tenants (name, slug) VALUES ($1, $2) RETURNING `+tenantColumns,
		req.Name, req.Slug))
	if err != nil {
		return nil, writeErr(err, "create tenant %s", req.Slug)
	}
	return &t, nil
}

func (q *queries) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := scanTenant(q.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrTenantNotFound, "get tenant %s", id)
	}
	return &t, nil
}

func (q *queries) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := q.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return collect(rows, scanTenant)
}
