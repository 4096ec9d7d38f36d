package migrate

import (
	"context"
	"fmt"

	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	"github.com/nearbuy/hyperlocal-backend/pkg/db"
	"github.com/nearbuy/hyperlocal-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot when running in dev with
// HYPERLOCAL_AUTO_MIGRATE enabled. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return fmt.Errorf("validating migrations: %w", err)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	st, err := Check(ctx, sqlDB, DefaultDir)
	if err != nil {
		return err
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"dir":            DefaultDir,
		"schema_version": st.Current,
		"pending_count":  len(st.Pending),
	})
	if len(st.Pending) == 0 {
		logg.Info(ctx, "marketplace schema up to date")
		return nil
	}

	logg.Info(ctx, "applying marketplace schema migrations")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "marketplace schema migrated")
	return nil
}
