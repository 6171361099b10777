package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
)

// CatalogService manages the clinic catalog: branches, services, resources,
// staff and clients.
type CatalogService struct {
	store database.Store
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store database.Store) *CatalogService {
	return &CatalogService{store: store}
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.Invalid("%s name is required", kind)
	}
	return nil
}

// CreateBranch creates an active branch.
func (s *CatalogService) CreateBranch(ctx context.Context, b clinic.Branch) (*clinic.Branch, error) {
	if err := requireName("branch", b.Name); err != nil {
		return nil, err
	}
	b.Active = true
	return s.store.CreateBranch(ctx, b)
}

func (s *CatalogService) GetBranch(ctx context.Context, id string) (*clinic.Branch, error) {
	return s.store.GetBranch(ctx, id)
}

func (s *CatalogService) ListBranches(ctx context.Context) ([]clinic.Branch, error) {
	return s.store.ListBranches(ctx)
}

// CreateService creates an active bookable service.
func (s *CatalogService) CreateService(ctx context.Context, svc clinic.Service) (*clinic.Service, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	svc.Active = true
	return s.store.CreateService(ctx, svc)
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*clinic.Service, error) {
	return s.store.GetService(ctx, id)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]clinic.Service, error) {
	return s.store.ListServices(ctx)
}

// CreateResource creates a resource at one of the tenant's branches.
func (s *CatalogService) CreateResource(ctx context.Context, r clinic.Resource) (*clinic.Resource, error) {
	if err := requireName("resource", r.Name); err != nil {
		return nil, err
	}
	switch r.Kind {
	case clinic.ResourceRoom, clinic.ResourceEquipment, clinic.ResourceTherapist:
	default:
		return nil, domain.Invalid("unknown resource kind %q", r.Kind)
	}
	if _, err := s.store.GetBranch(ctx, r.BranchID); err != nil {
		return nil, err
	}
	return s.store.CreateResource(ctx, r)
}

func (s *CatalogService) ListResources(ctx context.Context, branchID string) ([]clinic.Resource, error) {
	return s.store.ListResources(ctx, branchID)
}

// CreateStaff creates an active staff member at one of the tenant's branches.
func (s *CatalogService) CreateStaff(ctx context.Context, st clinic.Staff) (*clinic.Staff, error) {
	if err := requireName("staff", st.Name); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBranch(ctx, st.BranchID); err != nil {
		return nil, err
	}
	st.Active = true
	return s.store.CreateStaff(ctx, st)
}

func (s *CatalogService) ListStaff(ctx context.Context, branchID string) ([]clinic.Staff, error) {
	return s.store.ListStaff(ctx, branchID)
}

// CreateClient registers a client. Emails are unique per tenant.
func (s *CatalogService) CreateClient(ctx context.Context, c clinic.Client) (*clinic.Client, error) {
	if err := requireName("client", c.Name); err != nil {
		return nil, err
	}
	c.Email = clinic.NormalizeEmail(c.Email)
	if c.Email == "" {
		return nil, domain.Invalid("client email is required")
	}
	_, err := s.store.FindClientByEmail(ctx, c.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("client %s: %w", c.Email, domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return s.store.CreateClient(ctx, c)
}

func (s *CatalogService) GetClient(ctx context.Context, id string) (*clinic.Client, error) {
	return s.store.GetClient(ctx, id)
}
