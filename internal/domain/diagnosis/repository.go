package diagnosis

import "context"

// Repository defines the interface for currency score persistence
type Repository interface {
	// UpsertScores stores currency scores, replacing rows keyed by currency
	UpsertScores(ctx context.Context, scores []CurrencyScore) error

	// GetLatestScores returns the most recent score per currency
	GetLatestScores(ctx context.Context) (map[string]CurrencyScore, error)
}
