package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

func (q *queries) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out tenant.Tenant
	err := q.run(ctx, func(st *state, _ *scope.Journal) error {
		for _, t := range st.tenants {
			if t.Slug == req.Slug {
				return fmt.Errorf("tenant slug %q: %w", req.Slug, domain.ErrConflict)
			}
		}
		now := q.clock()
		out = tenant.Tenant{ID: newID(""), Name: req.Name, Slug: req.Slug, Enabled: true, CreatedAt: now, UpdatedAt: now}
		st.tenants[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *queries) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	var out tenant.Tenant
	err := q.run(ctx, func(st *state, _ *scope.Journal) error {
		t, ok := st.tenants[id]
		if !ok {
			return domain.ErrTenantNotFound
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *queries) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	out := []tenant.Tenant{}
	_ = q.run(ctx, func(st *state, _ *scope.Journal) error {
		for _, t := range st.tenants {
			out = append(out, t)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b tenant.Tenant) int { return cmp.Compare(a.Slug, b.Slug) })
	return out, nil
}

// SetTenantEnabled toggles a tenant. Not part of the store port; used by
// tests and admin tooling.
func (s *Store) SetTenantEnabled(id string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.st.tenants[id]; ok {
		t.Enabled = enabled
		s.st.tenants[id] = t
	}
}
