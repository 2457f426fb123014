package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/internal/config"
)

// NewPool opens the pool behind the postgres store. Every connection runs at
// READ COMMITTED; the store relies on row locks and conditional updates, not on
// a stricter isolation level.
func NewPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	runtime := pgxCfg.ConnConfig.RuntimeParams
	runtime["application_name"] = cfg.AppName
	runtime["default_transaction_isolation"] = "read committed"
	if cfg.Context.RequestTimeout > 0 {
		runtime["statement_timeout"] = cfg.Context.RequestTimeout.String()
	}

	if cfg.Database.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		zap.String("host", pgxCfg.ConnConfig.Host),
		zap.String("db", pgxCfg.ConnConfig.Database),
		zap.Int32("max_conns", pgxCfg.MaxConns))
	return pool, nil
}
