package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gearhaus/gearhaus/internal/app"
	"github.com/gearhaus/gearhaus/internal/catalog"
	"github.com/gearhaus/gearhaus/internal/discounts"
	"github.com/gearhaus/gearhaus/internal/giftcards"
	"github.com/gearhaus/gearhaus/internal/observability"
	"github.com/gearhaus/gearhaus/internal/platform/cache"
	"github.com/gearhaus/gearhaus/internal/platform/db"
	"github.com/gearhaus/gearhaus/internal/promotions"
	"github.com/gearhaus/gearhaus/internal/quote"
	"github.com/gearhaus/gearhaus/internal/shared"
	"github.com/gearhaus/gearhaus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, promotion snapshot cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	discountRepo := discounts.NewRepository(dbpool)
	discountService := discounts.NewService(discountRepo, auditLogger, logger)
	discountHandler := discounts.NewHandler(logger, discountService)

	promotionRepo := promotions.NewRepository(dbpool)
	promotionService := promotions.NewService(promotionRepo, redisClient, auditLogger, metrics, logger, cfg.PromoSnapshotTTL)
	promotionHandler := promotions.NewHandler(logger, promotionService)

	giftCardRepo := giftcards.NewRepository(dbpool)
	giftCardService := giftcards.NewService(giftCardRepo, auditLogger, idempotencyStore, metrics, logger)
	giftCardHandler := giftcards.NewHandler(logger, giftCardService)

	quoteService := quote.NewService(quote.ServiceParams{
		Catalog:    catalogService,
		Rules:      discountService,
		Promotions: promotionService,
		GiftCards:  giftCardService,
		Coupons:    quote.NewRepository(dbpool),
		Audit:      auditLogger,
		Metrics:    metrics,
		Logger:     logger,
		Currency:   cfg.PriceCurrency,
		Locale:     cfg.PriceLocale,
	})
	quoteHandler := quote.NewHandler(logger, quoteService, cfg.QuoteRateLimit)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		DiscountHandler:  discountHandler,
		PromotionHandler: promotionHandler,
		GiftCardHandler:  giftCardHandler,
		QuoteHandler:     quoteHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
