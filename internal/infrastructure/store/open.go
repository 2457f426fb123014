// Package store opens the transactional store selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/internal/config"
	pgInfra "github.com/fastygo/taskmarket/internal/infrastructure/postgres"
	"github.com/fastygo/taskmarket/repository"
	"github.com/fastygo/taskmarket/repository/postgres"
	"github.com/fastygo/taskmarket/repository/sqlite"
)

// Open migrates and connects the postgres store, or opens the embedded sqlite
// file. The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, err
		}
		pool, err := pgInfra.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		return postgres.NewStore(pool, cfg.Store.TxRetries, logger), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		s, err := sqlite.Open(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using embedded sqlite store", zap.String("path", cfg.Store.SQLitePath))
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
