// Package memory implements the database store port in process memory.
//
// Transactions are serialized by one mutex and run against a copy of the
// state that replaces the live state only on commit, so the booking
// guarantees hold without a database. Used by tests and the "memory"
// storage driver.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

type state struct {
	tenants      map[string]tenant.Tenant
	branches     map[string]clinic.Branch
	services     map[string]clinic.Service
	resources    map[string]clinic.Resource
	staff        map[string]clinic.Staff
	clients      map[string]clinic.Client
	templates    map[string]availability.Template
	exceptions   map[string]availability.Exception
	reservations map[string]reservation.Reservation
	packages     map[string]userpackage.UserPackage
}

func newState() *state {
	return &state{
		tenants:      map[string]tenant.Tenant{},
		branches:     map[string]clinic.Branch{},
		services:     map[string]clinic.Service{},
		resources:    map[string]clinic.Resource{},
		staff:        map[string]clinic.Staff{},
		clients:      map[string]clinic.Client{},
		templates:    map[string]availability.Template{},
		exceptions:   map[string]availability.Exception{},
		reservations: map[string]reservation.Reservation{},
		packages:     map[string]userpackage.UserPackage{},
	}
}

// clone copies every table. Values are copied by assignment; nested slices
// and pointers are never mutated in place.
func (s *state) clone() *state {
	return &state{
		tenants:      maps.Clone(s.tenants),
		branches:     maps.Clone(s.branches),
		services:     maps.Clone(s.services),
		resources:    maps.Clone(s.resources),
		staff:        maps.Clone(s.staff),
		clients:      maps.Clone(s.clients),
		templates:    maps.Clone(s.templates),
		exceptions:   maps.Clone(s.exceptions),
		reservations: maps.Clone(s.reservations),
		packages:     maps.Clone(s.packages),
	}
}

// Store implements database.Store in memory.
type Store struct {
	*queries

	mu    sync.Mutex
	st    *state
	guard *scope.Guard
	now   func() time.Time
}

var _ database.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store scoped by guard.
func New(guard *scope.Guard, opts ...Option) *Store {
	s := &Store{st: newState(), guard: guard, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.queries = &queries{s: s}
	return s
}

// InTx runs fn against a private copy of the state while holding the store
// lock, and publishes the copy only if fn succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(tx database.Queries) error) error {
	s.mu.Lock()
	tx := &queries{s: s, st: s.st.clone(), journal: s.guard.Journal()}
	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Unlock()
		tx.journal.Discard()
		return err
	}
	s.st = tx.st
	s.mu.Unlock()
	tx.journal.Flush(ctx)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// queries runs operations either inside a transaction (st set) or as
// single locked operations against the live state.
type queries struct {
	s       *Store
	st      *state
	journal *scope.Journal
}

func (q *queries) run(ctx context.Context, fn func(st *state, j *scope.Journal) error) error {
	if q.st != nil {
		return fn(q.st, q.journal)
	}
	j := q.s.guard.Journal()
	q.s.mu.Lock()
	err := fn(q.s.st, j)
	q.s.mu.Unlock()
	if err != nil {
		return err
	}
	j.Flush(ctx)
	return nil
}

func (q *queries) clock() time.Time { return q.s.now().UTC() }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// getScoped returns the row id of table if it belongs to the caller's
// tenant; rows of other tenants are reported as notFound.
func getScoped[T any](ctx context.Context, q *queries, entity audit.Entity, id string,
	table func(*state) map[string]T, tenantOf func(*T) string, notFound error,
) (*T, error) {
	tid, err := q.s.guard.Read(ctx, entity)
	if err != nil {
		return nil, err
	}
	var out T
	err = q.run(ctx, func(st *state, _ *scope.Journal) error {
		v, ok := table(st)[id]
		if !ok || tenantOf(&v) != tid {
			return notFound
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// listScoped returns the caller's rows of table accepted by keep, ordered by
// cmpFn.
func listScoped[T any](ctx context.Context, q *queries, entity audit.Entity,
	table func(*state) map[string]T, tenantOf func(*T) string, keep func(*T) bool, cmpFn func(a, b T) int,
) ([]T, error) {
	tid, err := q.s.guard.Read(ctx, entity)
	if err != nil {
		return nil, err
	}
	out := []T{}
	err = q.run(ctx, func(st *state, _ *scope.Journal) error {
		for _, v := range table(st) {
			if tenantOf(&v) == tid && (keep == nil || keep(&v)) {
				out = append(out, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, cmpFn)
	return out, nil
}

func byCreated[T any](created func(*T) time.Time, id func(*T) string) func(a, b T) int {
	return func(a, b T) int {
		if c := created(&a).Compare(created(&b)); c != 0 {
			return c
		}
		return cmp.Compare(id(&a), id(&b))
	}
}
