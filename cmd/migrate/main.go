package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/migrate"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	only := flag.String("tenant", "", "run for a single tenant id instead of all")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.WarnStack,
	})

	registry, err := tenant.NewRegistry(cfg.Tenants.SpecJSON, db.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	requireResource(ctx, logg, "tenant registry", err)
	defer registry.Close()

	ids := registry.IDs()
	if *only != "" {
		ids = []string{*only}
	}

	for _, id := range ids {
		t, err := registry.Resolve(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unknown tenant %q\n", id)
			os.Exit(1)
		}
		sqlDB, err := t.DB.Gorm().DB()
		requireResource(ctx, logg, "sql database", err)

		tctx := logg.WithFields(ctx, map[string]any{
			"tenant_id": id,
			"cmd":       *cmd,
			"dir":       *dir,
		})
		logg.Info(tctx, "running migration")

		switch *cmd {
		case "up", "down", "status":
			if err := migrate.Run(tctx, sqlDB, *dir, *cmd); err != nil {
				fmt.Fprintf(os.Stderr, "goose %s failed for tenant %s: %v\n", *cmd, id, err)
				os.Exit(1)
			}

		case "version":
			if *version == "" {
				fmt.Fprintln(os.Stderr, "missing -version for version command")
				os.Exit(1)
			}
			if err := migrate.MigrateToVersion(tctx, sqlDB, *dir, *version); err != nil {
				fmt.Fprintf(os.Stderr, "goose version migrate failed for tenant %s: %v\n", id, err)
				os.Exit(1)
			}

		default:
			fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
			os.Exit(1)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
