package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/brigade-pos/brigade/internal/jobs"
	"github.com/brigade-pos/brigade/internal/lowstock"
)

// LowStockSweepJob runs threshold sweeps. Scheduled runs carry an empty
// payload and cover every restaurant; manual triggers may scope to one.
type LowStockSweepJob struct {
	Evaluator *lowstock.Evaluator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockSweepJob wires dependencies for the sweep handler.
func NewLowStockSweepJob(evaluator *lowstock.Evaluator, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockSweepJob {
	return &LowStockSweepJob{Evaluator: evaluator, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockSweep tasks.
func (j *LowStockSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Evaluator == nil {
		return errors.New("lowstock sweep: handler not configured")
	}
	var payload SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskLowStockSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if payload.RestaurantID != "" {
		low, err := j.Evaluator.SweepRestaurant(ctx, payload.RestaurantID)
		if err != nil {
			resultErr = err
			logger.Error("sweep failed", slog.String("restaurant_id", payload.RestaurantID), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddLowStockAlerts(payload.RestaurantID, len(low))
		logger.Info("sweep completed", slog.String("restaurant_id", payload.RestaurantID), slog.Int("low", len(low)))
		return resultErr
	}

	if err := j.Evaluator.SweepAll(ctx); err != nil {
		resultErr = err
		logger.Error("full sweep failed", slog.Any("error", err))
		return resultErr
	}
	logger.Info("full sweep completed")
	return resultErr
}

func (j *LowStockSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockSweep))
	}
	return slog.Default().With(slog.String("job", TaskLowStockSweep))
}

func (j *LowStockSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
