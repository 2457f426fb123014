package redis

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/internal/config"
)

const connectAttempts = 3

// NewClient connects to the redis instance holding sessions and notification
// inboxes. A few pings are attempted so the service survives redis starting
// slightly later than it does.
func NewClient(ctx context.Context, cfg config.RedisConfig, appName string, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.ClientName = appName

	client := goRedis.NewClient(opts)

	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
			return client, nil
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			break
		}
		logger.Warn("redis not reachable yet", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	client.Close()
	return nil, fmt.Errorf("redis ping after %d attempts: %w", connectAttempts, err)
}
