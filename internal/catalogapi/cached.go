package catalogapi

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/internal/platform/cache"
)

// Fetcher is the upstream surface the cached client decorates.
type Fetcher interface {
	listing.ListingFetcher
	listing.DetailFetcher
}

// sharedLoadTimeout bounds an upstream load that outlives the caller that
// started it.
const sharedLoadTimeout = 30 * time.Second

// CachedClient serves catalog responses from Redis and collapses concurrent
// identical upstream calls. Cache failures degrade to direct upstream calls.
type CachedClient struct {
	next   Fetcher
	cache  *cache.Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedClient wraps next with the cache.
func NewCachedClient(next Fetcher, c *cache.Cache, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{next: next, cache: c, logger: logger}
}

// Listing implements listing.ListingFetcher.
func (c *CachedClient) Listing(ctx context.Context, rawQuery string) ([]listing.Item, error) {
	return cached(ctx, c, "listing", rawQuery, func(ctx context.Context) ([]listing.Item, error) {
		return c.next.Listing(ctx, rawQuery)
	})
}

// Detail implements listing.DetailFetcher.
func (c *CachedClient) Detail(ctx context.Context, id string) (*listing.Item, error) {
	return cached(ctx, c, "detail", id, func(ctx context.Context) (*listing.Item, error) {
		return c.next.Detail(ctx, id)
	})
}

// Invalidate drops every cached catalog response.
func (c *CachedClient) Invalidate(ctx context.Context) error {
	_, err := c.cache.Bump(ctx)
	return err
}

func cached[T any](ctx context.Context, c *CachedClient, kind, arg string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	resultChan := c.group.DoChan(kind+"|"+arg, func() (any, error) {
		// The load is shared by every waiting caller, so one caller going
		// away must not cancel it for the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		key, err := c.cache.BuildKey(ctx, "catalog", kind, arg)
		if err != nil {
			c.logger.Warn("catalog cache key", slog.String("kind", kind), slog.Any("error", err))
			return load(ctx)
		}

		var (
			out         T
			loaded      T
			didLoad     bool
			upstreamErr error
		)
		err = c.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			v, err := load(ctx)
			if err != nil {
				upstreamErr = err
				return nil, err
			}
			loaded, didLoad = v, true
			return v, nil
		})
		switch {
		case err == nil:
			return out, nil
		case upstreamErr != nil:
			return nil, upstreamErr
		}
		c.logger.Warn("catalog cache unavailable", slog.String("kind", kind), slog.Any("error", err))
		if didLoad {
			return loaded, nil
		}
		return load(ctx)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}
