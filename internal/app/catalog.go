package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/adverts-listing/adverts/internal/catalogapi"
	"github.com/adverts-listing/adverts/internal/platform/cache"
)

// NewRedis connects to Redis. A failed ping is logged and the client is kept.
func NewRedis(ctx context.Context, cfg *Config, logger *slog.Logger) *redis.Client {
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	}
	return client
}

// NewCatalog builds the cached catalog API client shared by the web server
// and the worker.
func NewCatalog(cfg *Config, redisClient *redis.Client, observer catalogapi.Observer, logger *slog.Logger) *catalogapi.CachedClient {
	var opts []catalogapi.Option
	if observer != nil {
		opts = append(opts, catalogapi.WithObserver(observer))
	}
	client := catalogapi.NewClient(cfg.CatalogAPIURL, cfg.CatalogAPITimeout, opts...)
	return catalogapi.NewCachedClient(client, cache.NewCache(redisClient, "adverts", cfg.CacheTTL), logger)
}
