package cache

import (
	"context"
	"strings"
	"time"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
)

// NewFromConfig builds the configured cache. An unreachable redis falls back to memory so
// a cache outage only costs a fresh login. It returns nil when caching is disabled.
func NewFromConfig(cfg config.Config) Cache {
	backend := strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	switch backend {
	case "", "memory":
		return NewMemoryCache()
	case "redis":
		addr := strings.TrimSpace(cfg.RedisAddr)
		if addr == "" {
			logger.Warn("cache: REDIS_ADDR empty, using memory cache")
			return NewMemoryCache()
		}
		rc, err := NewRedisCache(RedisOptions{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisKeyPrefix,
		})
		if err != nil {
			logger.Warn("cache: redis init failed, using memory cache", "err", err)
			return NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("cache: redis unreachable, using memory cache", "addr", addr, "err", err)
			_ = rc.Close()
			return NewMemoryCache()
		}
		return rc
	case "none", "disabled", "off":
		return nil
	default:
		logger.Warn("cache: unknown CACHE_BACKEND, using memory cache", "backend", backend)
		return NewMemoryCache()
	}
}
