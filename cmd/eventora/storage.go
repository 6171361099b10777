package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FerDeGante/Eventora-sub000/internal/adapter/memory"
	"github.com/FerDeGante/Eventora-sub000/internal/adapter/postgres"
	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/port/auditlog"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

type storage struct {
	store database.Store
	audit auditlog.Reader
	close func()
}

// openStorage builds the configured store behind a guard that records to
// the store's own audit log.
func openStorage(ctx context.Context, cfg *config.Config, opts ...scope.Option) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		rec := memory.NewRecorder()
		guard := scope.NewGuard(append(opts, scope.WithRecorder(rec))...)
		return &storage{store: memory.New(guard), audit: rec, close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected")
		if cfg.Postgres.Migrate {
			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
			slog.Info("migrations applied")
		}
		rec := postgres.NewRecorder(pool)
		guard := scope.NewGuard(append(opts, scope.WithRecorder(rec))...)
		return &storage{store: postgres.NewStore(pool, guard), audit: rec, close: pool.Close}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
