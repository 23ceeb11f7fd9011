package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/adverts-listing/adverts/internal/app"
	jobmetrics "github.com/adverts-listing/adverts/internal/jobs"
	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient := app.NewRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalog := app.NewCatalog(cfg, redisClient, nil, logger)
	warmupJob := jobs.NewListingWarmupJob(catalog, logger, jobmetrics.NewMetrics(nil))

	warmupPayload := jobs.ListingWarmupPayload{Pages: cfg.WarmupPages, Take: listing.DefaultTake}
	cronPayload := warmupPayload
	cronPayload.Refresh = true
	warmupTask, err := jobs.NewListingWarmupTask(cronPayload)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskListingWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	if info, err := client.EnqueueListingWarmup(ctx, warmupPayload); err != nil {
		logger.Warn("enqueue startup warmup", slog.Any("error", err))
	} else {
		logger.Info("enqueued startup warmup", slog.String("task_id", info.ID))
	}
	if err := client.Close(); err != nil {
		logger.Warn("job client close", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
