package indicator

import "time"

// Observation is a single raw data point of an indicator series.
// A (SeriesID, Date) pair is revised in place when the provider restates it.
type Observation struct {
	SeriesID string    `db:"series_id"`
	Date     time.Time `db:"date"`
	Value    *float64  `db:"value"` // nil when the provider reported no value
	LoadedAt time.Time `db:"loaded_at"`
}

// Transform defines how raw observations become analysis values
type Transform string

const (
	TransformNone  Transform = "none"  // raw level
	TransformYoY   Transform = "yoy"   // year-over-year percent change
	TransformQoQ   Transform = "qoq"   // quarter-over-quarter annualized percent change
	TransformMoM   Transform = "mom"   // month-over-month percent change
	TransformDelta Transform = "delta" // absolute change vs prior observation
	TransformSMA4  Transform = "sma4"  // 4-period simple moving average
)

// Valid checks if transform is valid
func (t Transform) Valid() bool {
	switch t {
	case TransformNone, TransformYoY, TransformQoQ, TransformMoM, TransformDelta, TransformSMA4:
		return true
	}
	return false
}

// String returns string representation
func (t Transform) String() string {
	return string(t)
}

// FrequencyClass defines the native cadence of an indicator series
type FrequencyClass string

const (
	FreqDaily     FrequencyClass = "daily"
	FreqWeekly    FrequencyClass = "weekly"
	FreqMonthly   FrequencyClass = "monthly"
	FreqQuarterly FrequencyClass = "quarterly"
	FreqAnnual    FrequencyClass = "annual"
)

// Valid checks if frequency class is valid
func (f FrequencyClass) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqQuarterly, FreqAnnual:
		return true
	}
	return false
}

// String returns string representation
func (f FrequencyClass) String() string {
	return string(f)
}

// StalenessBound returns how old the newest observation may be before the
// series counts as stale for its cadence
func (f FrequencyClass) StalenessBound() time.Duration {
	switch f {
	case FreqDaily:
		return 5 * 24 * time.Hour
	case FreqWeekly:
		return 14 * 24 * time.Hour
	case FreqMonthly:
		return 45 * 24 * time.Hour
	case FreqQuarterly:
		return 120 * 24 * time.Hour
	case FreqAnnual:
		return 400 * 24 * time.Hour
	default:
		return 45 * 24 * time.Hour
	}
}

// Directionality defines whether a rising value is positive for the currency
type Directionality string

const (
	HigherIsPositive Directionality = "higher_is_positive"
	LowerIsPositive  Directionality = "lower_is_positive"
)

// Valid checks if directionality is valid
func (d Directionality) Valid() bool {
	switch d {
	case HigherIsPositive, LowerIsPositive:
		return true
	}
	return false
}

// Sign returns +1 for higher-is-positive, -1 for lower-is-positive
func (d Directionality) Sign() float64 {
	if d == LowerIsPositive {
		return -1
	}
	return 1
}

// Definition is the static configuration of one indicator
type Definition struct {
	Key            string         `db:"key"`
	SeriesID       string         `db:"series_id"`
	Name           string         `db:"name"`
	Transform      Transform      `db:"transform"`
	Unit           string         `db:"unit"`
	Frequency      FrequencyClass `db:"frequency"`
	Directionality Directionality `db:"directionality"`
	Currency       string         `db:"currency"`
	Category       string         `db:"category"`
	Weight         float64        `db:"weight"`

	// TypicalSurprisePct calibrates surprise normalization for this indicator.
	// Zero means uncalibrated; the surprise engine falls back to a conservative default.
	TypicalSurprisePct float64 `db:"typical_surprise_pct"`
}

// Snapshot is an indicator with its transformed current and prior values.
// A nil value means the transform could not be computed (data gap); the
// diagnosis engine excludes such indicators from both sides of its ratio.
type Snapshot struct {
	Definition Definition
	Current    *float64
	Prior      *float64
	AsOf       time.Time // date of the most recent underlying observation
}

// Usable reports whether both values exist so a trend vote can be derived
func (s Snapshot) Usable() bool {
	return s.Current != nil && s.Prior != nil
}
