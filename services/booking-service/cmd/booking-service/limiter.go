package main

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
)

// newLimiter shares counters through Redis when REDIS_ADDR is set, otherwise limits per
// process. The returned client is nil without Redis.
func newLimiter(logger *slog.Logger) (httpx.Limiter, *redis.Client) {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewMemoryLimiter(limit, time.Minute), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	logger.Info("rate limiting via redis", "addr", addr, "per_minute", limit)
	return httpx.NewRedisLimiter(rdb, limit, time.Minute, "booking:rl:"), rdb
}
