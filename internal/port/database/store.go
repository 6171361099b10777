// Package database defines the database store port (interface).
//
// Store is the only sanctioned path to persistence for tenant-owned
// entities. Every implementation scopes reads and writes to the tenant bound
// in the context (see internal/scope) and hands committed mutations to the
// audit recorder.
package database

import (
	"context"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
)

// Store is the port interface for database operations. Calls made directly
// on a Store run in their own implicit transaction.
type Store interface {
	Queries

	// InTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; audit entries for its writes are
	// recorded only after commit.
	InTx(ctx context.Context, fn func(tx Queries) error) error

	Ping(ctx context.Context) error
}

// Queries is the set of operations available both on a Store and inside a
// transaction.
type Queries interface {
	// Tenants are the identity root and are not themselves tenant-scoped.
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)

	// Catalog
	CreateBranch(ctx context.Context, b clinic.Branch) (*clinic.Branch, error)
	GetBranch(ctx context.Context, id string) (*clinic.Branch, error)
	ListBranches(ctx context.Context) ([]clinic.Branch, error)
	CreateService(ctx context.Context, s clinic.Service) (*clinic.Service, error)
	GetService(ctx context.Context, id string) (*clinic.Service, error)
	ListServices(ctx context.Context) ([]clinic.Service, error)
	CreateResource(ctx context.Context, r clinic.Resource) (*clinic.Resource, error)
	GetResource(ctx context.Context, id string) (*clinic.Resource, error)
	ListResources(ctx context.Context, branchID string) ([]clinic.Resource, error)
	CreateStaff(ctx context.Context, s clinic.Staff) (*clinic.Staff, error)
	GetStaff(ctx context.Context, id string) (*clinic.Staff, error)
	ListStaff(ctx context.Context, branchID string) ([]clinic.Staff, error)
	CreateClient(ctx context.Context, c clinic.Client) (*clinic.Client, error)
	GetClient(ctx context.Context, id string) (*clinic.Client, error)
	FindClientByEmail(ctx context.Context, email string) (*clinic.Client, error)

	// Availability templates
	CreateTemplate(ctx context.Context, t availability.Template) (*availability.Template, error)
	CreateTemplates(ctx context.Context, ts []availability.Template) (int, error)
	GetTemplate(ctx context.Context, id string) (*availability.Template, error)
	UpdateTemplate(ctx context.Context, id string, p availability.TemplatePatch) (*availability.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	DeleteTemplates(ctx context.Context, owner availability.Owner) (int, error)
	ListTemplates(ctx context.Context, f availability.TemplateFilter) ([]availability.Template, error)

	// Availability exceptions
	CreateException(ctx context.Context, e availability.Exception) (*availability.Exception, error)
	DeleteException(ctx context.Context, id string) error
	ListExceptions(ctx context.Context, date string, owners ...availability.Owner) ([]availability.Exception, error)

	// Reservations

	// LockSlot serializes bookings sharing a conflict key until the enclosing
	// transaction ends.
	LockSlot(ctx context.Context, key string) error
	// FindConflict returns an active reservation colliding with c, or nil.
	FindConflict(ctx context.Context, c reservation.Conflict) (*reservation.Reservation, error)
	CreateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error)
	// GetReservation locks the row when called inside a transaction.
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	UpdateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error)
	// CountBooked counts active reservations of branch and service starting
	// on day, keyed by UTC "HH:MM" label.
	CountBooked(ctx context.Context, branchID, serviceID string, day time.Time) (map[string]int, error)

	// Packages
	CreatePackage(ctx context.Context, p userpackage.UserPackage) (*userpackage.UserPackage, error)
	GetPackage(ctx context.Context, id string) (*userpackage.UserPackage, error)
	ListPackages(ctx context.Context, clientID string) ([]userpackage.UserPackage, error)
	// ConsumePackageSession decrements sessions_remaining only if the
	// package belongs to clientID, is unexpired at now and not empty.
	ConsumePackageSession(ctx context.Context, id, clientID string, now time.Time) (*userpackage.UserPackage, error)
	// RefundPackageSession increments sessions_remaining, capped at the total.
	RefundPackageSession(ctx context.Context, id string) (*userpackage.UserPackage, error)
}
