package transform

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"hermes/internal/domain/indicator"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Layer converts raw observation series into indicator snapshots with
// transformed current and prior values.
type Layer struct {
	obsRepo indicator.Repository
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewLayer creates a new transform layer.
// The limiter bounds repository reads to respect collaborator rate limits.
func NewLayer(obsRepo indicator.Repository, limiter *rate.Limiter) *Layer {
	return &Layer{
		obsRepo: obsRepo,
		limiter: limiter,
		log:     logger.Get().With("component", "transform_layer"),
	}
}

// Snapshot builds the transformed snapshot for one indicator definition.
// A series too short for the transform yields nil values, never an error:
// partial macro data is the normal case.
func (l *Layer) Snapshot(ctx context.Context, def indicator.Definition) (indicator.Snapshot, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return indicator.Snapshot{Definition: def}, err
		}
	}

	observations, err := l.obsRepo.GetObservations(ctx, def.SeriesID)
	if err != nil {
		return indicator.Snapshot{Definition: def}, errors.Wrapf(err, "get observations for %s", def.SeriesID)
	}

	values, dates := compact(observations)
	snap := indicator.Snapshot{Definition: def}
	if len(values) == 0 {
		l.log.Debug("No usable observations", "series", def.SeriesID)
		return snap, nil
	}

	snap.AsOf = dates[len(dates)-1]

	last := len(values) - 1
	if v, ok := Apply(def.Transform, values, def.Frequency, last); ok {
		snap.Current = &v
	}
	if v, ok := Apply(def.Transform, values, def.Frequency, last-1); ok {
		snap.Prior = &v
	}

	return snap, nil
}

// Snapshots builds snapshots for a set of definitions, skipping series
// that cannot be read rather than failing the batch.
func (l *Layer) Snapshots(ctx context.Context, defs []indicator.Definition) []indicator.Snapshot {
	snapshots := make([]indicator.Snapshot, 0, len(defs))
	for _, def := range defs {
		snap, err := l.Snapshot(ctx, def)
		if err != nil {
			l.log.Error("Failed to build indicator snapshot",
				"key", def.Key,
				"error", err,
			)
			snap = indicator.Snapshot{Definition: def}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// compact drops observations with nil values and returns parallel
// value/date slices ordered by date ascending
func compact(observations []indicator.Observation) ([]float64, []time.Time) {
	values := make([]float64, 0, len(observations))
	dates := make([]time.Time, 0, len(observations))
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		values = append(values, *obs.Value)
		dates = append(dates, obs.Date)
	}
	return values, dates
}
