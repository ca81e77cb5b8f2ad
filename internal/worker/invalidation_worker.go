package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rfcharts/internal/amqp"
	applog "rfcharts/internal/log"
)

// Invalidator drops the cached charts of a plan.
type Invalidator interface {
	Invalidate(planID string) int
}

// Consumer delivers forecast-updated messages until ctx ends.
type Consumer interface {
	ConsumeForecastUpdated(ctx context.Context, handler func(context.Context, *amqp.ForecastUpdatedMessage) error) error
}

var _ Consumer = (*amqp.Client)(nil)

// InvalidationWorker keeps the chart cache in step with imports announced
// over AMQP.
type InvalidationWorker struct {
	charts Invalidator
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]int64 // highest version handled per plan
}

func NewInvalidationWorker(charts Invalidator, logger *slog.Logger) *InvalidationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidationWorker{
		charts: charts,
		logger: logger.With(applog.FieldComponent, applog.ComponentWorker),
		seen:   make(map[string]int64),
	}
}

// HandleForecastUpdated processes a single forecast-updated message.
// Redelivered or out-of-order messages older than the last handled version
// are skipped; version 0 means unknown and always invalidates.
func (w *InvalidationWorker) HandleForecastUpdated(ctx context.Context, msg *amqp.ForecastUpdatedMessage) error {
	w.mu.Lock()
	last := w.seen[msg.PlanID]
	stale := msg.Version != 0 && msg.Version < last
	if !stale && msg.Version > last {
		w.seen[msg.PlanID] = msg.Version
	}
	w.mu.Unlock()

	if stale {
		w.logger.DebugContext(ctx, "Skipping stale forecast update",
			applog.FieldPlanID, msg.PlanID,
			applog.FieldVersion, msg.Version,
			"last_version", last)
		return nil
	}

	n := w.charts.Invalidate(msg.PlanID)
	w.logger.InfoContext(ctx, "Forecast updated",
		applog.FieldPlanID, msg.PlanID,
		applog.FieldVersion, msg.Version,
		"source", msg.Source,
		"invalidated", n)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *InvalidationWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeForecastUpdated(ctx, w.HandleForecastUpdated)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
