package postgres

import (
	"context"

	"hermes/internal/domain/indicator"
	"hermes/pkg/errors"
)

// ObservationRepository implements indicator.Repository
type ObservationRepository struct {
	db DBTX
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db DBTX) *ObservationRepository {
	return &ObservationRepository{db: db}
}

var _ indicator.Repository = (*ObservationRepository)(nil)

// UpsertObservations stores observations, revising existing (series_id, date)
// rows. Provider restatements of history land as updates, never duplicates.
func (r *ObservationRepository) UpsertObservations(ctx context.Context, observations []indicator.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO indicator_observations (series_id, date, value, loaded_at)
		VALUES (:series_id, :date, :value, :loaded_at)
		ON CONFLICT (series_id, date) DO UPDATE SET
			value = EXCLUDED.value,
			loaded_at = EXCLUDED.loaded_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, observations); err != nil {
		return errors.Wrap(err, "upsert observations")
	}
	return nil
}

// GetObservations returns all observations for a series ordered by date ascending
func (r *ObservationRepository) GetObservations(ctx context.Context, seriesID string) ([]indicator.Observation, error) {
	query := `
		SELECT series_id, date, value, loaded_at
		FROM indicator_observations
		WHERE series_id = $1
		ORDER BY date ASC
	`

	var observations []indicator.Observation
	if err := r.db.SelectContext(ctx, &observations, query, seriesID); err != nil {
		return nil, errors.Wrapf(err, "get observations for %s", seriesID)
	}
	return observations, nil
}
