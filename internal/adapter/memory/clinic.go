package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// --- Branches ---

func (q *queries) CreateBranch(ctx context.Context, b clinic.Branch) (*clinic.Branch, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityBranch, audit.OpCreate, b.TenantID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(b.Name) == "" {
		return nil, domain.Invalid("branch name is required")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		b.ID, b.TenantID, b.CreatedAt = newID(b.ID), tid, q.clock()
		st.branches[b.ID] = b
		j.Add(ctx, tid, audit.EntityBranch, audit.OpCreate, b.ID, "", &b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (q *queries) GetBranch(ctx context.Context, id string) (*clinic.Branch, error) {
	return getScoped(ctx, q, audit.EntityBranch, id,
		func(st *state) map[string]clinic.Branch { return st.branches },
		func(b *clinic.Branch) string { return b.TenantID }, domain.ErrBranchNotFound)
}

func (q *queries) ListBranches(ctx context.Context) ([]clinic.Branch, error) {
	return listScoped(ctx, q, audit.EntityBranch,
		func(st *state) map[string]clinic.Branch { return st.branches },
		func(b *clinic.Branch) string { return b.TenantID }, nil,
		byCreated(func(b *clinic.Branch) time.Time { return b.CreatedAt }, func(b *clinic.Branch) string { return b.ID }))
}

// --- Services ---

func (q *queries) CreateService(ctx context.Context, s clinic.Service) (*clinic.Service, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityService, audit.OpCreate, s.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		s.ID, s.TenantID, s.CreatedAt = newID(s.ID), tid, q.clock()
		st.services[s.ID] = s
		j.Add(ctx, tid, audit.EntityService, audit.OpCreate, s.ID, "", &s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *queries) GetService(ctx context.Context, id string) (*clinic.Service, error) {
	return getScoped(ctx, q, audit.EntityService, id,
		func(st *state) map[string]clinic.Service { return st.services },
		func(s *clinic.Service) string { return s.TenantID }, domain.ErrServiceNotFound)
}

func (q *queries) ListServices(ctx context.Context) ([]clinic.Service, error) {
	return listScoped(ctx, q, audit.EntityService,
		func(st *state) map[string]clinic.Service { return st.services },
		func(s *clinic.Service) string { return s.TenantID }, nil,
		byCreated(func(s *clinic.Service) time.Time { return s.CreatedAt }, func(s *clinic.Service) string { return s.ID }))
}

// --- Resources ---

func (q *queries) CreateResource(ctx context.Context, r clinic.Resource) (*clinic.Resource, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityResource, audit.OpCreate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if r.BranchID == "" || strings.TrimSpace(r.Name) == "" {
		return nil, domain.Invalid("resource branch and name are required")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		if b, ok := st.branches[r.BranchID]; !ok || b.TenantID != tid {
			return domain.ErrBranchNotFound
		}
		r.ID, r.TenantID, r.CreatedAt = newID(r.ID), tid, q.clock()
		st.resources[r.ID] = r
		j.Add(ctx, tid, audit.EntityResource, audit.OpCreate, r.ID, "", &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *queries) GetResource(ctx context.Context, id string) (*clinic.Resource, error) {
	return getScoped(ctx, q, audit.EntityResource, id,
		func(st *state) map[string]clinic.Resource { return st.resources },
		func(r *clinic.Resource) string { return r.TenantID }, domain.ErrResourceNotFound)
}

func (q *queries) ListResources(ctx context.Context, branchID string) ([]clinic.Resource, error) {
	return listScoped(ctx, q, audit.EntityResource,
		func(st *state) map[string]clinic.Resource { return st.resources },
		func(r *clinic.Resource) string { return r.TenantID },
		func(r *clinic.Resource) bool { return branchID == "" || r.BranchID == branchID },
		byCreated(func(r *clinic.Resource) time.Time { return r.CreatedAt }, func(r *clinic.Resource) string { return r.ID }))
}

// --- Staff ---

func (q *queries) CreateStaff(ctx context.Context, s clinic.Staff) (*clinic.Staff, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityStaff, audit.OpCreate, s.TenantID)
	if err != nil {
		return nil, err
	}
	if s.BranchID == "" || strings.TrimSpace(s.Name) == "" {
		return nil, domain.Invalid("staff branch and name are required")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		if b, ok := st.branches[s.BranchID]; !ok || b.TenantID != tid {
			return domain.ErrBranchNotFound
		}
		s.ID, s.TenantID, s.CreatedAt = newID(s.ID), tid, q.clock()
		st.staff[s.ID] = s
		j.Add(ctx, tid, audit.EntityStaff, audit.OpCreate, s.ID, "", &s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *queries) GetStaff(ctx context.Context, id string) (*clinic.Staff, error) {
	return getScoped(ctx, q, audit.EntityStaff, id,
		func(st *state) map[string]clinic.Staff { return st.staff },
		func(s *clinic.Staff) string { return s.TenantID }, domain.ErrStaffNotFound)
}

func (q *queries) ListStaff(ctx context.Context, branchID string) ([]clinic.Staff, error) {
	return listScoped(ctx, q, audit.EntityStaff,
		func(st *state) map[string]clinic.Staff { return st.staff },
		func(s *clinic.Staff) string { return s.TenantID },
		func(s *clinic.Staff) bool { return branchID == "" || s.BranchID == branchID },
		byCreated(func(s *clinic.Staff) time.Time { return s.CreatedAt }, func(s *clinic.Staff) string { return s.ID }))
}

// --- Clients ---

func (q *queries) CreateClient(ctx context.Context, c clinic.Client) (*clinic.Client, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityClient, audit.OpCreate, c.TenantID)
	if err != nil {
		return nil, err
	}
	c.Email = clinic.NormalizeEmail(c.Email)
	if c.Email == "" || strings.TrimSpace(c.Name) == "" {
		return nil, domain.Invalid("client email and name are required")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		for _, existing := range st.clients {
			if existing.TenantID == tid && existing.Email == c.Email {
				return fmt.Errorf("client %s: %w", c.Email, domain.ErrConflict)
			}
		}
		c.ID, c.TenantID, c.CreatedAt = newID(c.ID), tid, q.clock()
		st.clients[c.ID] = c
		j.Add(ctx, tid, audit.EntityClient, audit.OpCreate, c.ID, "", &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *queries) GetClient(ctx context.Context, id string) (*clinic.Client, error) {
	return getScoped(ctx, q, audit.EntityClient, id,
		func(st *state) map[string]clinic.Client { return st.clients },
		func(c *clinic.Client) string { return c.TenantID }, domain.ErrClientNotFound)
}

func (q *queries) FindClientByEmail(ctx context.Context, email string) (*clinic.Client, error) {
	email = clinic.NormalizeEmail(email)
	found, err := listScoped(ctx, q, audit.EntityClient,
		func(st *state) map[string]clinic.Client { return st.clients },
		func(c *clinic.Client) string { return c.TenantID },
		func(c *clinic.Client) bool { return c.Email == email },
		func(a, b clinic.Client) int { return 0 })
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrClientNotFound
	}
	return &found[0], nil
}
