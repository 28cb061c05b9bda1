package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/brigade-pos/brigade/internal/app"
	"github.com/brigade-pos/brigade/internal/inventory"
	jobmetrics "github.com/brigade-pos/brigade/internal/jobs"
	"github.com/brigade-pos/brigade/internal/lowstock"
	"github.com/brigade-pos/brigade/internal/mailer"
	"github.com/brigade-pos/brigade/internal/menu"
	"github.com/brigade-pos/brigade/internal/platform/cache"
	"github.com/brigade-pos/brigade/internal/platform/db"
	"github.com/brigade-pos/brigade/internal/shared"
	"github.com/brigade-pos/brigade/jobs"
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

	metrics := jobmetrics.NewMetrics(nil)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	menuRepo := menu.NewRepository(pool)
	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, menuRepo, idempotencyStore)

	thresholds := lowstock.NewPGThresholdStore(pool)
	var stateStore lowstock.StateStore = lowstock.NewMemoryStateStore()
	if redisClient != nil {
		stateStore = lowstock.NewRedisStateStore(redisClient)
	}
	notifier := jobs.NewLowStockNotifier(jobsClient, cfg.AlertEmail)
	evaluator := lowstock.NewEvaluator(inventoryRepo, thresholds, stateStore, notifier, logger)

	deductJob := jobs.NewDeductJob(inventoryService, logger, metrics)
	sweepJob := jobs.NewLowStockSweepJob(evaluator, logger, metrics)
	sender := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	emailJob := jobs.NewSendEmailJob(sender, logger)

	var cron []jobs.CronRegistration
	for _, spec := range []string{cfg.LowStockSweepCron, cfg.LowStockDailyCron, cfg.LowStockWeeklyCron} {
		if spec == "" {
			continue
		}
		sweepTask, err := jobs.NewLowStockSweepTask(jobs.SweepPayload{})
		if err != nil {
			logger.Error("build sweep task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    spec,
			Task:    sweepTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInventoryDeduct, Handler: deductJob.Handle},
			{Type: jobs.TaskLowStockSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskTypeSendEmail, Handler: emailJob.Handle},
		},
		Cron: cron,
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
