package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gearhaus/gearhaus/internal/app"
	"github.com/gearhaus/gearhaus/internal/giftcards"
	jobmetrics "github.com/gearhaus/gearhaus/internal/jobs"
	"github.com/gearhaus/gearhaus/internal/platform/cache"
	"github.com/gearhaus/gearhaus/internal/platform/db"
	"github.com/gearhaus/gearhaus/internal/promotions"
	"github.com/gearhaus/gearhaus/internal/shared"
	"github.com/gearhaus/gearhaus/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := jobmetrics.NewMetrics(nil)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	promotionRepo := promotions.NewRepository(pool)
	promotionService := promotions.NewService(promotionRepo, redisClient, auditLogger, nil, logger, cfg.PromoSnapshotTTL)
	rolloverJob := jobs.NewPromotionRolloverJob(promotionService, redisClient, logger, metrics)

	giftCardRepo := giftcards.NewRepository(pool)
	giftCardService := giftcards.NewService(giftCardRepo, auditLogger, idempotencyStore, nil, logger)
	expiryJob := jobs.NewGiftCardExpiryJob(giftCardService, logger, metrics)

	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotencyStore, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPromotionRollover, Handler: rolloverJob.Handle},
			{Type: jobs.TaskGiftCardExpiry, Handler: expiryJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "* * * * *", Task: jobs.NewPromotionRolloverTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: jobs.NewGiftCardExpiryTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
