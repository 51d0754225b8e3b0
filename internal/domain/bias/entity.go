package bias

import (
	"math"
	"time"
)

// Direction is the traded stance implied by a bias score
type Direction string

const (
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// Valid checks if direction is valid
func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionNeutral:
		return true
	}
	return false
}

// String returns string representation
func (d Direction) String() string {
	return string(d)
}

// Driver is one weighted input signal contributing to a MacroBias
type Driver struct {
	Key    string  `db:"key"`
	Value  float64 `db:"value"`  // in [-1, 1]
	Weight float64 `db:"weight"` // >= 0
}

// Meta carries coverage accounting for the quality checker
type Meta struct {
	DriversUsed  int `db:"drivers_used"`
	DriversTotal int `db:"drivers_total"`
}

// MacroBias is the directional stance for one symbol.
// Score sign and Direction must agree; the engine forces neutral below
// the confidence floor or the minimum driver count.
type MacroBias struct {
	Symbol     string    `db:"symbol"`
	Score      float64   `db:"score"`
	Direction  Direction `db:"direction"`
	Confidence float64   `db:"confidence"` // in [0, 1]
	Drivers    []Driver
	Narrative  string    `db:"narrative"`
	Meta       Meta
	ComputedAt time.Time `db:"computed_at"`
}

// DirectionFromScore derives the direction a score implies at a threshold.
// The stored Direction must always round-trip through this.
func DirectionFromScore(score, threshold float64) Direction {
	switch {
	case score > threshold:
		return DirectionLong
	case score < -threshold:
		return DirectionShort
	default:
		return DirectionNeutral
	}
}

// Consistent reports whether score sign and direction agree.
// A neutral direction with a non-zero score is allowed only when it was
// forced by a confidence or coverage floor, which the caller checks.
func (b MacroBias) Consistent(threshold float64) bool {
	if b.Direction == DirectionNeutral {
		return true
	}
	return b.Direction == DirectionFromScore(b.Score, threshold)
}

// Strength returns |score|
func (b MacroBias) Strength() float64 {
	return math.Abs(b.Score)
}
