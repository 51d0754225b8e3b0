package quality

import (
	"time"

	"hermes/internal/domain/bias"
	"hermes/internal/domain/correlation"
	"hermes/internal/domain/diagnosis"
)

// Level is the outcome of one invariant check
type Level string

const (
	LevelPass Level = "PASS"
	LevelWarn Level = "WARN"
	LevelFail Level = "FAIL"
)

// Valid checks if level is valid
func (l Level) Valid() bool {
	switch l {
	case LevelPass, LevelWarn, LevelFail:
		return true
	}
	return false
}

// String returns string representation
func (l Level) String() string {
	return string(l)
}

// InvariantResult is one named diagnostic over the combined snapshot
type InvariantResult struct {
	Name    string `db:"name"`
	Level   Level  `db:"level"`
	Message string `db:"message"`
}

// RenderedRow is what an external presentation layer produced from a
// MacroBias. The checker compares it field-for-field against its source.
type RenderedRow struct {
	Symbol     string
	Action     string // derived from bias direction: "buy" | "sell" | "hold"
	Score      float64
	Confidence float64
	Narrative  string
}

// IndicatorAge pairs an indicator key with the age of its newest observation
type IndicatorAge struct {
	Key       string
	Currency  string
	Frequency string
	AsOf      time.Time
}

// CombinedSnapshot is everything one pipeline run produced, handed to the
// checker as an immutable view.
type CombinedSnapshot struct {
	Diagnosis     diagnosis.Diagnosis
	Correlations  []correlation.Result
	Biases        []bias.MacroBias
	RenderedRows  []RenderedRow
	IndicatorAges []IndicatorAge
	Benchmark     string
	SnapshotTime  time.Time
}

// Report is the checker's full output. Diagnostic only, never persisted
// back into the snapshot it describes.
type Report struct {
	Results         []InvariantResult
	StaleDriverKeys []string
	OutlierCount    int
}

// Failed returns the FAIL-level results
func (r Report) Failed() []InvariantResult {
	var failed []InvariantResult
	for _, res := range r.Results {
		if res.Level == LevelFail {
			failed = append(failed, res)
		}
	}
	return failed
}

// HasFailures reports whether any check failed
func (r Report) HasFailures() bool {
	return len(r.Failed()) > 0
}
