package price

import (
	"context"
	"time"
)

// Repository defines the interface for asset price history access (ClickHouse)
type Repository interface {
	// GetPrices returns daily closes for a symbol since the given date, ascending
	GetPrices(ctx context.Context, symbol string, since time.Time) (Series, error)

	// InsertPrices stores daily closes in batch
	InsertPrices(ctx context.Context, points []Point) error
}
