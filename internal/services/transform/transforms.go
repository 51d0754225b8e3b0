package transform

import (
	"math"

	"github.com/markcheno/go-talib"

	"hermes/internal/domain/indicator"
)

// Func computes the analysis value at index i of a compacted,
// chronologically ordered value series.
type Func func(values []float64, freq indicator.FrequencyClass, i int) (float64, bool)

// dispatch is the exhaustive table over the closed transform set.
// Adding a Transform constant without a row here is caught by TestDispatchCoversAllTransforms.
var dispatch = map[indicator.Transform]Func{
	indicator.TransformNone:  rawLevel,
	indicator.TransformYoY:   yearOverYear,
	indicator.TransformQoQ:   quarterAnnualized,
	indicator.TransformMoM:   monthOverMonth,
	indicator.TransformDelta: delta,
	indicator.TransformSMA4:  sma4,
}

// Apply resolves the transform through the dispatch table.
// An unknown transform degrades to not-computable rather than panicking.
func Apply(t indicator.Transform, values []float64, freq indicator.FrequencyClass, i int) (float64, bool) {
	fn, ok := dispatch[t]
	if !ok {
		return 0, false
	}
	if i < 0 || i >= len(values) {
		return 0, false
	}
	return fn(values, freq, i)
}

// periodsPerYear maps a frequency class to observation counts in one year
func periodsPerYear(freq indicator.FrequencyClass) int {
	switch freq {
	case indicator.FreqDaily:
		return 252
	case indicator.FreqWeekly:
		return 52
	case indicator.FreqMonthly:
		return 12
	case indicator.FreqQuarterly:
		return 4
	case indicator.FreqAnnual:
		return 1
	default:
		return 12
	}
}

func rawLevel(values []float64, _ indicator.FrequencyClass, i int) (float64, bool) {
	return values[i], true
}

func yearOverYear(values []float64, freq indicator.FrequencyClass, i int) (float64, bool) {
	lag := periodsPerYear(freq)
	j := i - lag
	if j < 0 || values[j] == 0 {
		return 0, false
	}
	return (values[i] - values[j]) / math.Abs(values[j]) * 100, true
}

func quarterAnnualized(values []float64, _ indicator.FrequencyClass, i int) (float64, bool) {
	j := i - 1
	if j < 0 || values[j] <= 0 || values[i] <= 0 {
		return 0, false
	}
	ratio := values[i] / values[j]
	return (math.Pow(ratio, 4) - 1) * 100, true
}

func monthOverMonth(values []float64, _ indicator.FrequencyClass, i int) (float64, bool) {
	j := i - 1
	if j < 0 || values[j] == 0 {
		return 0, false
	}
	return (values[i] - values[j]) / math.Abs(values[j]) * 100, true
}

func delta(values []float64, _ indicator.FrequencyClass, i int) (float64, bool) {
	j := i - 1
	if j < 0 {
		return 0, false
	}
	return values[i] - values[j], true
}

// sma4 is the trailing 4-period simple moving average (the "4-week average"
// convention for weekly series like jobless claims)
func sma4(values []float64, _ indicator.FrequencyClass, i int) (float64, bool) {
	const period = 4
	if i < period-1 {
		return 0, false
	}
	sma := talib.Sma(values[:i+1], period)
	return sma[i], true
}
