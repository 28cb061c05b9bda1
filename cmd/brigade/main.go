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

	"github.com/brigade-pos/brigade/internal/app"
	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/lowstock"
	"github.com/brigade-pos/brigade/internal/menu"
	"github.com/brigade-pos/brigade/internal/observability"
	"github.com/brigade-pos/brigade/internal/orders"
	"github.com/brigade-pos/brigade/internal/platform/cache"
	"github.com/brigade-pos/brigade/internal/platform/db"
	"github.com/brigade-pos/brigade/internal/reservation"
	"github.com/brigade-pos/brigade/internal/shared"
	"github.com/brigade-pos/brigade/jobs"
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
		logger.Warn("redis connect", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	menuRepo := menu.NewRepository(dbpool)
	menuHandler := menu.NewHandler(logger, menuRepo)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, menuRepo, idempotencyStore)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, jobsClient, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	reservationRepo := reservation.NewRepository(dbpool)
	reservationService := reservation.NewService(reservationRepo)
	reservationHandler := reservation.NewHandler(logger, reservationService)

	thresholds := lowstock.NewPGThresholdStore(dbpool)
	var stateStore lowstock.StateStore = lowstock.NewMemoryStateStore()
	if redisClient != nil {
		stateStore = lowstock.NewRedisStateStore(redisClient)
	}
	evaluator := lowstock.NewEvaluator(inventoryRepo, thresholds, stateStore, nil, logger)
	lowStockHandler := lowstock.NewHandler(logger, evaluator, thresholds, jobsClient)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		InventoryHandler:   inventoryHandler,
		MenuHandler:        menuHandler,
		OrdersHandler:      ordersHandler,
		ReservationHandler: reservationHandler,
		LowStockHandler:    lowStockHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
