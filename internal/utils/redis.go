// Package utils: connection helpers for the backing services
package utils

import (
	"infrabeacon/internal/config"
	"infrabeacon/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis returns nil when REDIS_ADDR is unset; callers fall back to in-process state.
func OpenRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	logger.L().WithField("addr", cfg.RedisAddr).WithField("db", cfg.RedisDB).Debug("redis_env")
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
}
