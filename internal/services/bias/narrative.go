package bias

import (
	"fmt"
	"sort"
	"strings"

	"hermes/internal/domain/bias"
)

// buildNarrative renders the rationale text from the exact driver values
// used. It must be reproducible: the presentation layer re-renders the same
// text from a stored MacroBias without recomputation, so nothing here may
// depend on anything outside the arguments.
func buildNarrative(symbol string, score float64, direction bias.Direction, confidence float64, drivers []bias.Driver, meta bias.Meta) string {
	sorted := make([]bias.Driver, len(drivers))
	copy(sorted, drivers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	parts := make([]string, 0, len(sorted))
	for _, d := range sorted {
		parts = append(parts, fmt.Sprintf("%s %+.2f (w %.2f)", d.Key, d.Value, d.Weight))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s macro bias %s (score %+.2f, confidence %.2f). ",
		symbol, direction, score, confidence)
	fmt.Fprintf(&b, "Drivers [%d/%d]: %s.",
		meta.DriversUsed, meta.DriversTotal, strings.Join(parts, "; "))

	return b.String()
}

// insufficientDataNarrative is the fixed text for a zero-driver bias
func insufficientDataNarrative(symbol string) string {
	return fmt.Sprintf("%s macro bias neutral: insufficient data, no drivers available.", symbol)
}
