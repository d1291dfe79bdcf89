package db

import (
	"context"
	"fmt"

	"github.com/baharkarakas/checkflow/internal/config"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/baharkarakas/checkflow/internal/repository/postgres"
	"github.com/baharkarakas/checkflow/internal/repository/sqlite"
)

// Open connects the configured backend. Postgres migrations run only when
// APP_MIGRATE is set; SQLite always migrates on open.
func Open(ctx context.Context, cfg config.Config) (repo.Repositories, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return repo.Repositories{}, err
		}
		return store.Repositories(), nil
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return repo.Repositories{}, fmt.Errorf("db connect: %w", err)
		}
		if cfg.Migrate {
			if err := RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return repo.Repositories{}, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.NewRepositories(pool), nil
	}
	return repo.Repositories{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
