package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/FerDeGante/Eventora-sub000/internal/adapter/postgres"
	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
	"github.com/FerDeGante/Eventora-sub000/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: eventora admin <command> [options]

Commands:
  create-tenant    Register a clinic
  list-tenants     List all clinics
  migrate          Show, apply or roll back schema migrations
  help             Show this help message

Examples:
  eventora admin create-tenant --name "Clinica Sol" --slug clinica-sol
  eventora admin list-tenants
  eventora admin migrate --down 1
`)
}

func loadAdminDeps(ctx context.Context) (*service.TenantService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("admin commands need the postgres driver, got %q", cfg.Storage.Driver)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	guard := scope.NewGuard(scope.WithRecorder(postgres.NewRecorder(pool)))
	return service.NewTenantService(postgres.NewStore(pool, guard), nil, 0), pool.Close, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "clinic display name (required)")
	slug := fs.String("slug", "", "url-safe clinic identifier (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	tenants, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := tenants.Create(ctx, tenant.CreateRequest{Name: *name, Slug: *slug})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s)\n", t.Slug, t.ID)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	tenants, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := tenants.List(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tENABLED\tCREATED")
	for i := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			list[i].ID, list[i].Slug, list[i].Name, list[i].Enabled, list[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	up := fs.Bool("up", false, "apply pending migrations")
	down := fs.Int("down", 0, "roll back this many migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	dsn := cfg.Postgres.DSN

	switch {
	case *up:
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return err
		}
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, dsn, *down); err != nil {
			return err
		}
	}

	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Schema version: %d\n", v)
	return nil
}
