package postgres

import (
	"context"

	"hermes/internal/domain/diagnosis"
	"hermes/pkg/errors"
)

// CurrencyScoreRepository implements diagnosis.Repository
type CurrencyScoreRepository struct {
	db DBTX
}

// NewCurrencyScoreRepository creates a new currency score repository
func NewCurrencyScoreRepository(db DBTX) *CurrencyScoreRepository {
	return &CurrencyScoreRepository{db: db}
}

var _ diagnosis.Repository = (*CurrencyScoreRepository)(nil)

// UpsertScores stores currency scores, replacing rows keyed by currency
func (r *CurrencyScoreRepository) UpsertScores(ctx context.Context, scores []diagnosis.CurrencyScore) error {
	if len(scores) == 0 {
		return nil
	}

	query := `
		INSERT INTO currency_scores (
			currency, total_score, regime,
			drivers_used, drivers_total, stale_drivers, computed_at
		) VALUES (
			:currency, :total_score, :regime,
			:drivers_used, :drivers_total, :stale_drivers, :computed_at
		)
		ON CONFLICT (currency) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			regime = EXCLUDED.regime,
			drivers_used = EXCLUDED.drivers_used,
			drivers_total = EXCLUDED.drivers_total,
			stale_drivers = EXCLUDED.stale_drivers,
			computed_at = EXCLUDED.computed_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, scores); err != nil {
		return errors.Wrap(err, "upsert currency scores")
	}
	return nil
}

// GetLatestScores returns the most recent score per currency
func (r *CurrencyScoreRepository) GetLatestScores(ctx context.Context) (map[string]diagnosis.CurrencyScore, error) {
	query := `
		SELECT currency, total_score, regime,
		       drivers_used, drivers_total, stale_drivers, computed_at
		FROM currency_scores
	`

	var rows []diagnosis.CurrencyScore
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "get latest currency scores")
	}

	scores := make(map[string]diagnosis.CurrencyScore, len(rows))
	for _, s := range rows {
		scores[s.Currency] = s
	}
	return scores, nil
}
