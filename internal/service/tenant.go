package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/cache"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
)

// TenantService manages tenants and resolves the tenant a request runs as.
type TenantService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewTenantService creates a TenantService. Resolved tenants are cached for
// ttl when c is non-nil.
func NewTenantService(store database.Store, c cache.Cache, ttl time.Duration) *TenantService {
	return &TenantService{store: store, cache: c, ttl: ttl}
}

func tenantKey(id string) string { return "tenant:" + id }

// Resolve returns the tenant to bind: explicitID when given, else the
// tenant already bound in ctx. The tenant must exist and be enabled.
func (s *TenantService) Resolve(ctx context.Context, explicitID string) (*tenant.Tenant, error) {
	id := explicitID
	if id == "" {
		id = tenant.IDFromContext(ctx)
	}
	if id == "" {
		return nil, domain.ErrTenantContextMissing
	}

	t, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Enabled {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantDisabled)
	}
	return t, nil
}

func (s *TenantService) lookup(ctx context.Context, id string) (*tenant.Tenant, error) {
	if s.cache != nil {
		if t, ok := cache.GetJSON[tenant.Tenant](ctx, s.cache, tenantKey(id)); ok {
			return &t, nil
		}
	}
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	if s.cache != nil {
		_ = cache.SetJSON(ctx, s.cache, tenantKey(id), t, s.ttl)
	}
	return t, nil
}

// Create validates and creates a new tenant.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateTenant(ctx, req)
}

// Get returns a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}
