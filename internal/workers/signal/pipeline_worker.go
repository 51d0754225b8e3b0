package signal

import (
	"context"
	"time"

	"hermes/internal/metrics"
	"hermes/internal/pipeline"
	"hermes/internal/workers"
	"hermes/pkg/errors"
)

// PipelineWorker runs the full batch pass on a fixed interval
type PipelineWorker struct {
	*workers.BaseWorker
	runner *pipeline.Runner
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(runner *pipeline.Runner, interval time.Duration, enabled bool) *PipelineWorker {
	return &PipelineWorker{
		BaseWorker: workers.NewBaseWorker("signal_pipeline", interval, enabled),
		runner:     runner,
	}
}

// Run executes one pipeline pass
func (w *PipelineWorker) Run(ctx context.Context) error {
	start := time.Now()

	report, err := w.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrRunInProgress) {
			// Another trigger got there first, the next tick will catch up
			w.Log().Debug("Pipeline pass skipped, run already in progress")
			return nil
		}
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "pipeline pass")
	}

	metrics.SymbolsProcessed.Add(float64(report.SymbolsProcessed))
	metrics.StaleDrivers.Set(float64(len(report.Quality.StaleDriverKeys)))
	w.RecordRun(time.Since(start))

	w.Log().Info("Pipeline pass finished",
		"processed", report.SymbolsProcessed,
		"failed", report.SymbolsFailed,
		"quality_checks", len(report.Quality.Results),
		"duration", report.Duration,
	)
	return nil
}
