package correlation

import (
	"time"

	"github.com/google/uuid"
)

// Window is one configured correlation lookback
type Window struct {
	Name        string // e.g. "3m", "12m"
	TradingDays int    // e.g. 63, 252
	MinObs      int    // below this the result is null
}

// TrendType classifies the short-vs-long window comparison
type TrendType string

const (
	TrendStrengthening TrendType = "strengthening"
	TrendWeakening     TrendType = "weakening"
	TrendStable        TrendType = "stable"
	TrendInconclusive  TrendType = "inconclusive"
)

// Valid checks if trend type is valid
func (t TrendType) Valid() bool {
	switch t {
	case TrendStrengthening, TrendWeakening, TrendStable, TrendInconclusive:
		return true
	}
	return false
}

// String returns string representation
func (t TrendType) String() string {
	return string(t)
}

// Result is a rolling correlation of one symbol against the benchmark.
// Value is nil when fewer than MinObs aligned observations existed;
// NObservations always carries the actual aligned count.
type Result struct {
	ID            uuid.UUID `db:"id"`
	Symbol        string    `db:"symbol"`
	Benchmark     string    `db:"benchmark"`
	Window        string    `db:"window"`
	Value         *float64  `db:"value"`
	NObservations int       `db:"n_observations"`
	AsOfDate      time.Time `db:"as_of_date"`
	Trend         TrendType `db:"trend"`
	Reason        string    `db:"reason"` // why Value is nil, empty otherwise
	ComputedAt    time.Time `db:"computed_at"`
}

// HasValue reports whether a correlation was actually computed
func (r Result) HasValue() bool {
	return r.Value != nil
}
