package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"gtm-backend/internal/app"
	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger.Init("gtm-worker", cfg.Debug)

	container, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer container.Close()

	rdb := container.RedisCmd()
	if rdb == nil {
		logger.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	worker := workers.NewStreamWorker(rdb, workers.StreamConfig{
		Stream:     cfg.Worker.Stream,
		Group:      cfg.Worker.Group,
		Consumer:   cfg.Worker.Consumer,
		JobTimeout: cfg.Worker.JobTimeout,
	}, workers.Handlers(container.Referrals, container.Subscriptions))

	// Failed jobs stay pending; the scheduler hands them back to this consumer.
	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(cfg.Worker.ReclaimInterval).SingletonMode().Do(func() {
		rctx, cancel := context.WithTimeout(ctx, cfg.Worker.JobTimeout)
		defer cancel()
		n, err := worker.ReclaimStale(rctx, cfg.Worker.ReclaimMinIdle)
		if err != nil {
			logger.Warn().Err(err).Msg("reclaim failed")
			return
		}
		if n > 0 {
			logger.Info().Int("jobs", n).Msg("reclaimed stale jobs")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule reclaim")
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	if err := worker.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker exited")
}
