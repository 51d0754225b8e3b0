package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hermes/internal/domain/price"
	"hermes/pkg/errors"
)

// Compile-time check
var _ price.Repository = (*PriceRepository)(nil)

// PriceRepository implements price.Repository using ClickHouse
type PriceRepository struct {
	conn driver.Conn
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(conn driver.Conn) *PriceRepository {
	return &PriceRepository{conn: conn}
}

// GetPrices returns daily closes for a symbol since the given date, ascending
func (r *PriceRepository) GetPrices(ctx context.Context, symbol string, since time.Time) (price.Series, error) {
	var points []price.Point

	sql := `
		SELECT symbol, date, close
		FROM daily_prices
		WHERE symbol = $1 AND date >= $2
		ORDER BY date ASC`

	if err := r.conn.Select(ctx, &points, sql, symbol, since); err != nil {
		return price.Series{}, errors.Wrapf(err, "get prices for %s", symbol)
	}

	return price.Series{Symbol: symbol, Points: points}, nil
}

// InsertPrices stores daily closes in batch
func (r *PriceRepository) InsertPrices(ctx context.Context, points []price.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO daily_prices (symbol, date, close)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare price batch")
	}

	for _, p := range points {
		if err := batch.Append(p.Symbol, p.Date, p.Close); err != nil {
			return errors.Wrap(err, "append price point")
		}
	}

	return batch.Send()
}
