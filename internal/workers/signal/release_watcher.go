package signal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hermes/internal/adapters/kafka"
	"hermes/internal/domain/event"
	"hermes/internal/metrics"
	surprisesvc "hermes/internal/services/surprise"
	"hermes/internal/workers"
	"hermes/pkg/errors"
)

// ActualSource resolves the published value for a scheduled event.
// ok is false while the value has not landed yet.
type ActualSource interface {
	Actual(ctx context.Context, ev *event.EconomicEvent) (decimal.Decimal, bool, error)
}

// ReleaseWatcher polls scheduled events past their release time and feeds
// landed actuals through the surprise engine.
type ReleaseWatcher struct {
	*workers.BaseWorker
	eventRepo event.Repository
	actuals   ActualSource
	engine    *surprisesvc.Engine
	producer  *kafka.Producer
	window    time.Duration
}

// NewReleaseWatcher creates a new release watcher
func NewReleaseWatcher(
	eventRepo event.Repository,
	actuals ActualSource,
	engine *surprisesvc.Engine,
	producer *kafka.Producer,
	interval time.Duration,
	window time.Duration,
	enabled bool,
) *ReleaseWatcher {
	return &ReleaseWatcher{
		BaseWorker: workers.NewBaseWorker("release_watcher", interval, enabled),
		eventRepo:  eventRepo,
		actuals:    actuals,
		engine:     engine,
		producer:   producer,
		window:     window,
	}
}

// Run executes one watch iteration
func (w *ReleaseWatcher) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now()

	events, err := w.eventRepo.GetPendingEvents(ctx, now.Add(-w.window), now)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "load pending events")
	}
	if len(events) == 0 {
		w.RecordRun(time.Since(start))
		return nil
	}

	processed := 0
	for i := range events {
		ev := &events[i]

		actual, ok, err := w.actuals.Actual(ctx, ev)
		if err != nil {
			metrics.ReleasesProcessed.WithLabelValues(ev.Currency, "error").Inc()
			w.Log().Error("Failed to resolve actual",
				"event", ev.Title,
				"indicator", ev.IndicatorKey,
				"error", err,
			)
			continue
		}
		if !ok {
			// Published value has not landed yet, keep polling
			continue
		}

		surpriseStart := time.Now()
		result, err := w.engine.ProcessRelease(ctx, ev, actual)
		metrics.RecordEngineDuration("surprise", time.Since(surpriseStart))
		if err != nil {
			metrics.ReleasesProcessed.WithLabelValues(ev.Currency, "error").Inc()
			w.Log().Error("Failed to process release",
				"event", ev.Title,
				"error", err,
			)
			continue
		}

		status := "duplicate"
		if result.Created {
			status = "created"
			processed++
			w.publish(ctx, result)
		}
		metrics.ReleasesProcessed.WithLabelValues(ev.Currency, status).Inc()
	}

	w.RecordRun(time.Since(start))
	if processed > 0 {
		w.Log().Info("Releases processed",
			"pending", len(events),
			"processed", processed,
		)
	}
	return nil
}

func (w *ReleaseWatcher) publish(ctx context.Context, result *surprisesvc.Result) {
	if w.producer == nil {
		return
	}
	err := w.producer.Publish(ctx, kafka.TopicReleaseProcessed, result.Release.Currency, result)
	if err != nil {
		w.Log().Warn("Failed to publish processed release",
			"release_id", result.Release.ID,
			"error", err,
		)
	}
}
