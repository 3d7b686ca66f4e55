package migrate

import (
	"context"
	"fmt"

	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// MaybeRunDev migrates every tenant database automatically when the
// app runs in dev mode with the feature flag enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg *tenant.Registry) error {
	if cfg.App.Env != "dev" || !cfg.Features.AutoMigrate {
		return nil
	}

	for _, id := range reg.IDs() {
		t, err := reg.Resolve(id)
		if err != nil {
			return err
		}
		sqlDB, err := t.DB.Gorm().DB()
		if err != nil {
			return fmt.Errorf("extracting sql.DB for tenant %q: %w", id, err)
		}

		tctx := logg.WithFields(ctx, map[string]any{"tenant_id": id, "dir": DefaultDir})
		logg.Info(tctx, "running goose migrations (dev auto-run)")

		if err := Run(tctx, sqlDB, DefaultDir, "up"); err != nil {
			return fmt.Errorf("goose up for tenant %q: %w", id, err)
		}
		logg.Info(tctx, "goose migrations completed")
	}
	return nil
}
