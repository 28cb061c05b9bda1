package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/brigade-pos/brigade/internal/inventory"
	jobmetrics "github.com/brigade-pos/brigade/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DeductJob applies a committed sale to the stock ledgers. The deduction
// path is idempotent per source, so a retried task never deducts twice.
type DeductJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDeductJob wires dependencies for the deduction handler.
func NewDeductJob(inv *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeductJob {
	return &DeductJob{Inventory: inv, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInventoryDeduct tasks.
func (j *DeductJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("deduct: handler not configured")
	}
	var payload DeductPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskInventoryDeduct)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("restaurant_id", payload.RestaurantID),
		slog.String("source_id", payload.SourceID),
		slog.String("source_type", payload.SourceType))

	result, err := j.Inventory.Deduct(ctx, payload.Input())
	if err != nil {
		resultErr = err
		logger.Error("deduction failed", slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddDeductionWarnings(payload.RestaurantID, len(result.Warnings))
	for _, warning := range result.Warnings {
		logger.Warn("deduction warning", slog.String("warning", warning))
	}
	if !result.Success {
		resultErr = fmt.Errorf("deduct %s %s: %d item errors", payload.SourceType, payload.SourceID, len(result.Errors))
		logger.Error("deduction incomplete", slog.Any("errors", result.Errors))
		return resultErr
	}

	logger.Info("deduction applied", slog.Int("deducted", len(result.DeductedItems)))
	return resultErr
}

func (j *DeductJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryDeduct))
	}
	return slog.Default().With(slog.String("job", TaskInventoryDeduct))
}

func (j *DeductJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
