package postgres

import (
	"context"

	"hermes/internal/domain/correlation"
	"hermes/pkg/errors"
)

// CorrelationRepository implements correlation.Repository
type CorrelationRepository struct {
	db DBTX
}

// NewCorrelationRepository creates a new correlation repository
func NewCorrelationRepository(db DBTX) *CorrelationRepository {
	return &CorrelationRepository{db: db}
}

var _ correlation.Repository = (*CorrelationRepository)(nil)

// UpsertResults stores results keyed by (symbol, benchmark, window).
// Null-valued results are stored too: a gap with its reason is a fact
// downstream readers need, not an absence.
func (r *CorrelationRepository) UpsertResults(ctx context.Context, results []correlation.Result) error {
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO correlations (
			id, symbol, benchmark, "window", value,
			n_observations, as_of_date, trend, reason, computed_at
		) VALUES (
			:id, :symbol, :benchmark, :window, :value,
			:n_observations, :as_of_date, :trend, :reason, :computed_at
		)
		ON CONFLICT (symbol, benchmark, "window") DO UPDATE SET
			value = EXCLUDED.value,
			n_observations = EXCLUDED.n_observations,
			as_of_date = EXCLUDED.as_of_date,
			trend = EXCLUDED.trend,
			reason = EXCLUDED.reason,
			computed_at = EXCLUDED.computed_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, results); err != nil {
		return errors.Wrap(err, "upsert correlation results")
	}
	return nil
}

// GetBySymbol returns the latest results for one symbol, all windows
func (r *CorrelationRepository) GetBySymbol(ctx context.Context, symbol string) ([]correlation.Result, error) {
	query := `
		SELECT id, symbol, benchmark, "window", value,
		       n_observations, as_of_date, trend, reason, computed_at
		FROM correlations
		WHERE symbol = $1
		ORDER BY "window" ASC
	`

	var results []correlation.Result
	if err := r.db.SelectContext(ctx, &results, query, symbol); err != nil {
		return nil, errors.Wrapf(err, "get correlations for %s", symbol)
	}
	return results, nil
}
