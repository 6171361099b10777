package service

import (
	"context"
	"time"

	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
)

// PackageService records purchased session bundles and redeems sessions
// outside of a booking, such as a point-of-sale redemption.
type PackageService struct {
	store   database.Store
	events  *EventDispatcher
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewPackageService creates a PackageService.
func NewPackageService(store database.Store, events *EventDispatcher) *PackageService {
	return &PackageService{store: store, events: events, now: time.Now}
}

// SetMetrics enables session counters.
func (s *PackageService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Create records a purchased bundle with every session available.
func (s *PackageService) Create(ctx context.Context, req userpackage.CreateRequest) (*userpackage.UserPackage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreatePackage(ctx, req.Package())
}

// Get returns a package by ID.
func (s *PackageService) Get(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	return s.store.GetPackage(ctx, id)
}

// ListForClient lists the packages of a client.
func (s *PackageService) ListForClient(ctx context.Context, clientID string) ([]userpackage.UserPackage, error) {
	return s.store.ListPackages(ctx, clientID)
}

// Consume draws one session of clientID's package.
func (s *PackageService) Consume(ctx context.Context, id, clientID string) (*userpackage.UserPackage, error) {
	p, err := s.store.ConsumePackageSession(ctx, id, clientID, s.now())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PackageConsumed.Add(ctx, 1, cfotel.Tenant(p.TenantID))
	}
	s.events.PackageConsumed(ctx, p, "")
	return p, nil
}

// Refund returns one session, never past the bundle's total.
func (s *PackageService) Refund(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	p, err := s.store.RefundPackageSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PackageRefunded.Add(ctx, 1, cfotel.Tenant(p.TenantID))
	}
	s.events.PackageRefunded(ctx, p, "")
	return p, nil
}
