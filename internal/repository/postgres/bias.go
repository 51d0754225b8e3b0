package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"hermes/internal/domain/bias"
	"hermes/pkg/errors"
)

// BiasRepository implements bias.Repository
type BiasRepository struct {
	db DBTX
}

// NewBiasRepository creates a new bias repository
func NewBiasRepository(db DBTX) *BiasRepository {
	return &BiasRepository{db: db}
}

var _ bias.Repository = (*BiasRepository)(nil)

// biasRow is the flat storage shape; drivers travel as JSONB
type biasRow struct {
	Symbol       string    `db:"symbol"`
	Score        float64   `db:"score"`
	Direction    string    `db:"direction"`
	Confidence   float64   `db:"confidence"`
	Drivers      []byte    `db:"drivers"`
	Narrative    string    `db:"narrative"`
	DriversUsed  int       `db:"drivers_used"`
	DriversTotal int       `db:"drivers_total"`
	ComputedAt   time.Time `db:"computed_at"`
}

// Upsert stores a bias with its drivers, replacing the row keyed by symbol
func (r *BiasRepository) Upsert(ctx context.Context, b *bias.MacroBias) error {
	drivers, err := json.Marshal(b.Drivers)
	if err != nil {
		return errors.Wrapf(err, "marshal drivers for %s", b.Symbol)
	}

	query := `
		INSERT INTO macro_biases (
			symbol, score, direction, confidence, drivers,
			narrative, drivers_used, drivers_total, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol) DO UPDATE SET
			score = EXCLUDED.score,
			direction = EXCLUDED.direction,
			confidence = EXCLUDED.confidence,
			drivers = EXCLUDED.drivers,
			narrative = EXCLUDED.narrative,
			drivers_used = EXCLUDED.drivers_used,
			drivers_total = EXCLUDED.drivers_total,
			computed_at = EXCLUDED.computed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		b.Symbol, b.Score, b.Direction.String(), b.Confidence, drivers,
		b.Narrative, b.Meta.DriversUsed, b.Meta.DriversTotal, b.ComputedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert bias for %s", b.Symbol)
	}
	return nil
}

// GetBySymbol returns the latest bias for a symbol
func (r *BiasRepository) GetBySymbol(ctx context.Context, symbol string) (*bias.MacroBias, error) {
	query := `
		SELECT symbol, score, direction, confidence, drivers,
		       narrative, drivers_used, drivers_total, computed_at
		FROM macro_biases
		WHERE symbol = $1
	`

	var row biasRow
	err := r.db.GetContext(ctx, &row, query, symbol)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get bias for %s", symbol)
	}
	return row.toDomain()
}

// GetAll returns the latest bias per symbol
func (r *BiasRepository) GetAll(ctx context.Context) ([]bias.MacroBias, error) {
	query := `
		SELECT symbol, score, direction, confidence, drivers,
		       narrative, drivers_used, drivers_total, computed_at
		FROM macro_biases
		ORDER BY symbol ASC
	`

	var rows []biasRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "get all biases")
	}

	biases := make([]bias.MacroBias, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		biases = append(biases, *b)
	}
	return biases, nil
}

func (row biasRow) toDomain() (*bias.MacroBias, error) {
	var drivers []bias.Driver
	if len(row.Drivers) > 0 {
		if err := json.Unmarshal(row.Drivers, &drivers); err != nil {
			return nil, errors.Wrapf(err, "unmarshal drivers for %s", row.Symbol)
		}
	}

	return &bias.MacroBias{
		Symbol:     row.Symbol,
		Score:      row.Score,
		Direction:  bias.Direction(row.Direction),
		Confidence: row.Confidence,
		Drivers:    drivers,
		Narrative:  row.Narrative,
		Meta: bias.Meta{
			DriversUsed:  row.DriversUsed,
			DriversTotal: row.DriversTotal,
		},
		ComputedAt: row.ComputedAt,
	}, nil
}
