package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// Store implements database.Store using PostgreSQL. Every query on a
// tenant-owned table filters by the tenant the guard resolves from the
// context.
type Store struct {
	*queries
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, guard *scope.Guard) *Store {
	s := &Store{pool: pool}
	s.queries = &queries{db: pool, guard: guard, store: s}
	return s
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn inside a READ COMMITTED transaction. Audit entries for the
// transaction's writes are recorded after a successful commit.
func (s *Store) InTx(ctx context.Context, fn func(tx database.Queries) error) error {
	return s.inTx(ctx, func(q *queries) error { return fn(q) })
}

func (s *Store) inTx(ctx context.Context, fn func(q *queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	journal := s.guard.Journal()
	if err := fn(&queries{db: tx, guard: s.guard, store: s, journal: journal, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	journal.Flush(ctx)
	return nil
}

// queries executes statements on the pool or on an open transaction.
type queries struct {
	db      dbtx
	guard   *scope.Guard
	store   *Store
	journal *scope.Journal
	inTx    bool
}

// atomic runs fn in the current transaction, or in a new one.
func (q *queries) atomic(ctx context.Context, fn func(q *queries) error) error {
	if q.inTx {
		return fn(q)
	}
	return q.store.inTx(ctx, fn)
}

// audit buffers an entry in the open transaction's journal, or records it
// immediately after an autocommitted statement.
func (q *queries) audit(ctx context.Context, tenantID string, entity audit.Entity, op audit.Op, resultID, filterID string, obj audit.Auditable) {
	if q.journal != nil {
		q.journal.Add(ctx, tenantID, entity, op, resultID, filterID, obj)
		return
	}
	j := q.guard.Journal()
	j.Add(ctx, tenantID, entity, op, resultID, filterID, obj)
	j.Flush(ctx)
}

// forUpdate locks selected rows when running inside a transaction.
func (q *queries) forUpdate() string {
	if q.inTx {
		return " FOR UPDATE"
	}
	return ""
}
