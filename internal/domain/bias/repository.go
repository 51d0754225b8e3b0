package bias

import "context"

// Repository defines the interface for macro bias persistence
type Repository interface {
	// Upsert stores a bias with its drivers, replacing the row keyed by symbol
	Upsert(ctx context.Context, b *MacroBias) error

	// GetBySymbol returns the latest bias for a symbol
	GetBySymbol(ctx context.Context, symbol string) (*MacroBias, error)

	// GetAll returns the latest bias per symbol
	GetAll(ctx context.Context) ([]MacroBias, error)
}
