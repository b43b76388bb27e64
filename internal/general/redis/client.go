package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to Redis per cfg and verifies connectivity.
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr: net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		DB:   cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"host": cfg.Redis.Host,
		"port": cfg.Redis.Port,
		"db":   cfg.Redis.DB,
	})

	return client, nil
}
