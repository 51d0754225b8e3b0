package correlation

import "context"

// Repository defines the interface for correlation result persistence
type Repository interface {
	// UpsertResults stores results keyed by (symbol, benchmark, window)
	UpsertResults(ctx context.Context, results []Result) error

	// GetBySymbol returns the latest results for one symbol, all windows
	GetBySymbol(ctx context.Context, symbol string) ([]Result, error)
}
