package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
)

// --- Branches ---

const branchColumns = `id, tenant_id, name, address, active, created_at`

func scanBranch(row scannable) (clinic.Branch, error) {
	var b clinic.Branch
	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.Address, &b.Active, &b.CreatedAt)
	return b, err
}

func (q *queries) CreateBranch(ctx context.Context, b clinic.Branch) (*clinic.Branch, error) {
	tid, err := q.guard.Write(ctx, audit.EntityBranch, audit.OpCreate, b.TenantID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(b.Name) == "" {
		return nil, domain.Invalid("branch name is required")
	}
	out, err := scanBranch(q.db.QueryRow(ctx,
		`INSERT INTO branches (tenant_id, name, address, active)
		 VALUES ($1, $2, $3, $4) RETURNING `+branchColumns,
		tid, b.Name, b.Address, b.Active))
	if err != nil {
		return nil, writeErr(err, "create branch")
	}
	q.audit(ctx, tid, audit.EntityBranch, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetBranch(ctx context.Context, id string) (*clinic.Branch, error) {
	tid, err := q.guard.Read(ctx, audit.EntityBranch)
	if err != nil {
		return nil, err
	}
	b, err := scanBranch(q.db.QueryRow(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrBranchNotFound, "get branch %s", id)
	}
	return &b, nil
}

func (q *queries) ListBranches(ctx context.Context) ([]clinic.Branch, error) {
	tid, err := q.guard.Read(ctx, audit.EntityBranch)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE tenant_id = $1 ORDER BY created_at, id`, tid)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return collect(rows, scanBranch)
}

// --- Services ---

const serviceColumns = `id, tenant_id, category_id, name, duration_minutes, price_cents, active, created_at`

func scanService(row scannable) (clinic.Service, error) {
	var s clinic.Service
	err := row.Scan(&s.ID, &s.TenantID, &s.CategoryID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt)
	return s, err
}

func (q *queries) CreateService(ctx context.Context, s clinic.Service) (*clinic.Service, error) {
	tid, err := q.guard.Write(ctx, audit.EntityService, audit.OpCreate, s.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out, err := scanService(q.db.QueryRow(ctx,
		`INSERT INTO services (tenant_id, category_id, name, duration_minutes, price_cents, active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+serviceColumns,
		tid, s.CategoryID, s.Name, s.DurationMinutes, s.PriceCents, s.Active))
	if err != nil {
		return nil, writeErr(err, "create service")
	}
	q.audit(ctx, tid, audit.EntityService, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetService(ctx context.Context, id string) (*clinic.Service, error) {
	tid, err := q.guard.Read(ctx, audit.EntityService)
	if err != nil {
		return nil, err
	}
	s, err := scanService(q.db.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrServiceNotFound, "get service %s", id)
	}
	return &s, nil
}

func (q *queries) ListServices(ctx context.Context) ([]clinic.Service, error) {
	tid, err := q.guard.Read(ctx, audit.EntityService)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE tenant_id = $1 ORDER BY created_at, id`, tid)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return collect(rows, scanService)
}

// --- Resources ---

const resourceColumns = `id, tenant_id, branch_id, kind, name, created_at`

func scanResource(row scannable) (clinic.Resource, error) {
	var r clinic.Resource
	err := row.Scan(&r.ID, &r.TenantID, &r.BranchID, &r.Kind, &r.Name, &r.CreatedAt)
	return r, err
}

func (q *queries) CreateResource(ctx context.Context, r clinic.Resource) (*clinic.Resource, error) {
	tid, err := q.guard.Write(ctx, audit.EntityResource, audit.OpCreate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if r.BranchID == "" || strings.TrimSpace(r.Name) == "" {
		return nil, domain.Invalid("resource branch and name are required")
	}
	if r.Kind == "" {
		r.Kind = clinic.ResourceRoom
	}
	// The branch must belong to the same tenant; a foreign key alone would
	// accept another tenant's branch.
	out, err := scanResource(q.db.QueryRow(ctx,
		`INSERT INTO resources (tenant_id, branch_id, kind, name)
		 SELECT $1, b.id, $3, $4 FROM branches b WHERE b.id = $2 AND b.tenant_id = $1
		 RETURNING `+resourceColumns,
		tid, r.BranchID, string(r.Kind), r.Name))
	if err != nil {
		return nil, branchRefErr(err, "create resource")
	}
	q.audit(ctx, tid, audit.EntityResource, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetResource(ctx context.Context, id string) (*clinic.Resource, error) {
	tid, err := q.guard.Read(ctx, audit.EntityResource)
	if err != nil {
		return nil, err
	}
	r, err := scanResource(q.db.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrResourceNotFound, "get resource %s", id)
	}
	return &r, nil
}

func (q *queries) ListResources(ctx context.Context, branchID string) ([]clinic.Resource, error) {
	tid, err := q.guard.Read(ctx, audit.EntityResource)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE tenant_id = $1 AND ($2 = '' OR branch_id::text = $2)
		 ORDER BY created_at, id`, tid, branchID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return collect(rows, scanResource)
}

// --- Staff ---

const staffColumns = `id, tenant_id, branch_id, name, active, created_at`

func scanStaff(row scannable) (clinic.Staff, error) {
	var s clinic.Staff
	err := row.Scan(&s.ID, &s.TenantID, &s.BranchID, &s.Name, &s.Active, &s.CreatedAt)
	return s, err
}

func (q *queries) CreateStaff(ctx context.Context, s clinic.Staff) (*clinic.Staff, error) {
	tid, err := q.guard.Write(ctx, audit.EntityStaff, audit.OpCreate, s.TenantID)
	if err != nil {
		return nil, err
	}
	if s.BranchID == "" || strings.TrimSpace(s.Name) == "" {
		return nil, domain.Invalid("staff branch and name are required")
	}
	out, err := scanStaff(q.db.QueryRow(ctx,
		`INSERT INTO staff (tenant_id, branch_id, name, active)
		 SELECT $1, b.id, $3, $4 FROM branches b WHERE b.id = $2 AND b.tenant_id = $1
		 RETURNING `+staffColumns,
		tid, s.BranchID, s.Name, s.Active))
	if err != nil {
		return nil, branchRefErr(err, "create staff")
	}
	q.audit(ctx, tid, audit.EntityStaff, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetStaff(ctx context.Context, id string) (*clinic.Staff, error) {
	tid, err := q.guard.Read(ctx, audit.EntityStaff)
	if err != nil {
		return nil, err
	}
	s, err := scanStaff(q.db.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrStaffNotFound, "get staff %s", id)
	}
	return &s, nil
}

func (q *queries) ListStaff(ctx context.Context, branchID string) ([]clinic.Staff, error) {
	tid, err := q.guard.Read(ctx, audit.EntityStaff)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+staffColumns+` FROM staff
		 WHERE tenant_id = $1 AND ($2 = '' OR branch_id::text = $2)
		 ORDER BY created_at, id`, tid, branchID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return collect(rows, scanStaff)
}

// branchRefErr maps an INSERT ... SELECT that matched no branch of the
// tenant to ErrBranchNotFound.
func branchRefErr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidText {
		return fmt.Errorf("%s: %w", msg, domain.ErrBranchNotFound)
	}
	return writeErr(err, "%s", msg)
}

// --- Clients ---

const clientColumns = `id, tenant_id, email, name, phone, created_at`

func scanClient(row scannable) (clinic.Client, error) {
	var c clinic.Client
	err := row.Scan(&c.ID, &c.TenantID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt)
	return c, err
}

func (q *queries) CreateClient(ctx context.Context, c clinic.Client) (*clinic.Client, error) {
	tid, err := q.guard.Write(ctx, audit.EntityClient, audit.OpCreate, c.TenantID)
	if err != nil {
		return nil, err
	}
	c.Email = clinic.NormalizeEmail(c.Email)
	if c.Email == "" || strings.TrimSpace(c.Name) == "" {
		return nil, domain.Invalid("client email and name are required")
	}
	out, err := scanClient(q.db.QueryRow(ctx,
		`INSERT INTO clients (tenant_id, email, name, phone)
		 VALUES ($1, $2, $3, $4) RETURNING `+clientColumns,
		tid, c.Email, c.Name, c.Phone))
	if err != nil {
		return nil, writeErr(err, "create client %s", c.Email)
	}
	q.audit(ctx, tid, audit.EntityClient, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetClient(ctx context.Context, id string) (*clinic.Client, error) {
	tid, err := q.guard.Read(ctx, audit.EntityClient)
	if err != nil {
		return nil, err
	}
	c, err := scanClient(q.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND tenant_id = $2`, id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrClientNotFound, "get client %s", id)
	}
	return &c, nil
}

func (q *queries) FindClientByEmail(ctx context.Context, email string) (*clinic.Client, error) {
	tid, err := q.guard.Read(ctx, audit.EntityClient)
	if err != nil {
		return nil, err
	}
	email = clinic.NormalizeEmail(email)
	c, err := scanClient(q.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND email = $2`, tid, email))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrClientNotFound, "find client %s", email)
	}
	return &c, nil
}
