package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at startup when APP_ENV is dev and the
// auto-migrate flag is on. Other environments run cmd/migrate as a release step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateEmbedded(); err != nil {
		return fmt.Errorf("embedded migrations invalid: %w", err)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	dialect := Dialect(cfg.DB.Driver)

	before, err := Version(sqlDB, dialect)
	if err != nil {
		// goose creates its version table on the first up
		before = 0
	}
	if err := Run(ctx, sqlDB, dialect, "up"); err != nil {
		return err
	}
	after, err := Version(sqlDB, dialect)
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"dialect":      dialect,
		"from_version": before,
		"to_version":   after,
	}), "dev migrations applied")
	return nil
}
