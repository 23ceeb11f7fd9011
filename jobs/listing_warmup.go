package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/adverts-listing/adverts/internal/jobs"
	"github.com/adverts-listing/adverts/internal/listing"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const pageTimeout = 20 * time.Second

// Invalidator drops cached catalog responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ListingWarmupJob walks the first pages of the default listing through the
// cached catalog client so the landing page is served from Redis.
type ListingWarmupJob struct {
	Fetcher     listing.ListingFetcher
	Invalidator Invalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewListingWarmupJob wires dependencies for the warmup handler. fetcher is
// used as the invalidator too when it supports it.
func NewListingWarmupJob(fetcher listing.ListingFetcher, logger *slog.Logger, metrics *jobmetrics.Metrics) *ListingWarmupJob {
	job := &ListingWarmupJob{Fetcher: fetcher, Logger: logger, Metrics: metrics}
	if inv, ok := fetcher.(Invalidator); ok {
		job.Invalidator = inv
	}
	return job
}

// Handle processes listing warmup tasks.
func (j *ListingWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Fetcher == nil {
		return errors.New("listing warmup: handler not configured")
	}
	var payload ListingWarmupPayload
	if uerr := json.Unmarshal(t.Payload(), &payload); uerr != nil {
		return fmt.Errorf("listing warmup: decode payload: %v: %w", uerr, asynq.SkipRetry)
	}
	if payload.Pages <= 0 {
		payload.Pages = DefaultWarmupPages
	}
	if payload.Take <= 0 {
		payload.Take = listing.DefaultTake
	}

	tracker := j.metrics().Track(TaskListingWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Int("pages", payload.Pages), slog.Int("take", payload.Take))
	logger.Info("starting listing warmup")
	start := time.Now()

	if payload.Refresh && j.Invalidator != nil {
		if ierr := j.Invalidator.Invalidate(ctx); ierr != nil {
			// Stale entries expire on their own; keep warming.
			logger.Warn("invalidate catalog cache", slog.Any("error", ierr))
		}
	}

	base := listing.Merge(listing.DefaultFilter(), listing.WithTake(payload.Take))
	warmed := 0
	for page := 1; page <= payload.Pages; page++ {
		n, werr := j.warmPage(ctx, listing.WithPage(base, page))
		if werr != nil {
			err = fmt.Errorf("listing warmup: page %d: %w", page, werr)
			logger.Error("warm page", slog.Int("page", page), slog.Any("error", werr))
			break
		}
		warmed++
		if n < payload.Take {
			break
		}
	}
	j.metrics().AddWarmed(TaskListingWarmup, warmed)

	if err == nil {
		logger.Info("completed listing warmup", slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	}
	return err
}

func (j *ListingWarmupJob) warmPage(ctx context.Context, f listing.Filter) (int, error) {
	pageCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()
	items, err := j.Fetcher.Listing(pageCtx, listing.APIQuery(f).Encode())
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (j *ListingWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskListingWarmup))
	}
	return slog.Default().With(slog.String("job", TaskListingWarmup))
}

func (j *ListingWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
