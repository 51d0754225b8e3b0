package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hermes/internal/domain/bias"
	"hermes/internal/domain/correlation"
	"hermes/internal/domain/indicator"
	"hermes/internal/domain/quality"
	"hermes/pkg/logger"
)

// staleEscalationRatio is the share of stale contributing drivers above
// which a currency's freshness violation becomes a FAIL
const staleEscalationRatio = 0.25

// Checker runs the invariant battery over a combined snapshot.
// It is stateless and never mutates its input.
type Checker struct {
	confidenceFloor float64
	minDrivers      int
	windows         []correlation.Window
	corrMaxAge      time.Duration
	log             *logger.Logger
}

// NewChecker creates a new quality checker
func NewChecker(confidenceFloor float64, minDrivers int, windows []correlation.Window, corrMaxAge time.Duration) *Checker {
	return &Checker{
		confidenceFloor: confidenceFloor,
		minDrivers:      minDrivers,
		windows:         windows,
		corrMaxAge:      corrMaxAge,
		log:             logger.Get().With("component", "quality_checker"),
	}
}

// Run executes every invariant check and returns the combined report
func (c *Checker) Run(snap quality.CombinedSnapshot) quality.Report {
	var report quality.Report

	report.Results = append(report.Results, c.usdBiasFXRule(snap)...)
	report.Results = append(report.Results, c.minCoverage(snap)...)
	report.Results = append(report.Results, c.fxCorrelationSigns(snap)...)
	report.Results = append(report.Results, c.correlationFreshness(snap)...)
	report.Results = append(report.Results, c.correlationMinObservations(snap)...)
	report.Results = append(report.Results, c.tableVsBias(snap)...)

	freshness, staleKeys := c.driverFreshness(snap)
	report.Results = append(report.Results, freshness...)
	report.StaleDriverKeys = staleKeys

	report.OutlierCount = countOutliers(snap)

	if report.HasFailures() {
		c.log.Warn("Quality checks produced failures", "failed", len(report.Failed()))
	}
	return report
}

// usdBiasFXRule verifies that every XXX/USD bias direction agrees with its
// usd_bias driver. Below the confidence floor the direction was forced
// neutral, so a mismatch there is expected and passes.
func (c *Checker) usdBiasFXRule(snap quality.CombinedSnapshot) []quality.InvariantResult {
	var results []quality.InvariantResult

	for _, b := range snap.Biases {
		if !strings.HasSuffix(b.Symbol, "/USD") {
			continue
		}

		var usdDriver *bias.Driver
		for i := range b.Drivers {
			if b.Drivers[i].Key == "usd_bias" {
				usdDriver = &b.Drivers[i]
				break
			}
		}
		if usdDriver == nil || usdDriver.Value == 0 {
			continue
		}

		implied := bias.DirectionLong
		if usdDriver.Value < 0 {
			implied = bias.DirectionShort
		}

		if b.Confidence < c.confidenceFloor {
			results = append(results, quality.InvariantResult{
				Name:    "usd_bias_fx_rule",
				Level:   quality.LevelPass,
				Message: fmt.Sprintf("%s below confidence floor, mismatch tolerated", b.Symbol),
			})
			continue
		}

		if b.Direction != bias.DirectionNeutral && b.Direction != implied {
			results = append(results, quality.InvariantResult{
				Name:  "usd_bias_fx_rule",
				Level: quality.LevelFail,
				Message: fmt.Sprintf("%s: usd_bias driver implies %s but bias direction is %s",
					b.Symbol, implied, b.Direction),
			})
			continue
		}

		results = append(results, quality.InvariantResult{
			Name:    "usd_bias_fx_rule",
			Level:   quality.LevelPass,
			Message: b.Symbol,
		})
	}
	return results
}

// minCoverage enforces the thin-coverage rule: under three drivers the
// direction must be neutral and confidence capped
func (c *Checker) minCoverage(snap quality.CombinedSnapshot) []quality.InvariantResult {
	var results []quality.InvariantResult

	for _, b := range snap.Biases {
		if b.Meta.DriversUsed >= c.minDrivers {
			continue
		}
		if b.Direction != bias.DirectionNeutral || b.Confidence > 0.5 {
			results = append(results, quality.InvariantResult{
				Name:  "min_coverage",
				Level: quality.LevelFail,
				Message: fmt.Sprintf("%s: %d drivers but direction=%s confidence=%.2f",
					b.Symbol, b.Meta.DriversUsed, b.Direction, b.Confidence),
			})
			continue
		}
		results = append(results, quality.InvariantResult{
			Name:    "min_coverage",
			Level:   quality.LevelPass,
			Message: fmt.Sprintf("%s: thin coverage correctly neutral", b.Symbol),
		})
	}
	return results
}

// fxCorrelationSigns checks the structural sign expectations against the
// benchmark. A regime shift can legitimately break these, hence WARN.
func (c *Checker) fxCorrelationSigns(snap quality.CombinedSnapshot) []quality.InvariantResult {
	var results []quality.InvariantResult

	for _, r := range snap.Correlations {
		if !r.HasValue() {
			continue
		}

		expected := 0.0
		switch {
		case strings.HasSuffix(r.Symbol, "/USD"):
			expected = -1
		case strings.HasPrefix(r.Symbol, "USD/"):
			expected = 1
		default:
			continue
		}

		if expected < 0 && *r.Value > 0 || expected > 0 && *r.Value < 0 {
			results = append(results, quality.InvariantResult{
				Name:  "fx_correlation_signs",
				Level: quality.LevelWarn,
				Message: fmt.Sprintf("%s %s window: correlation %+.2f violates expected sign vs %s",
					r.Symbol, r.Window, *r.Value, snap.Benchmark),
			})
		}
	}
	return results
}

// correlationFreshness warns on correlation rows older than the SLA
func (c *Checker) correlationFreshness(snap quality.CombinedSnapshot) []quality.InvariantResult {
	var results []quality.InvariantResult

	for _, r := range snap.Correlations {
		age := snap.SnapshotTime.Sub(r.AsOfDate)
		if age <= c.corrMaxAge {
			continue
		}
		results = append(results, quality.InvariantResult{
			Name:  "correlation_freshness_sla",
			Level: quality.LevelWarn,
			Message: fmt.Sprintf("%s %s window computed %s, over SLA",
				r.Symbol, r.Window, humanize.Time(r.AsOfDate)),
		})
	}
	return results
}

// correlationMinObservations warns when a non-null value was computed on
// fewer points than its window demands
func (c *Checker) correlationMinObservations(snap quality.CombinedSnapshot) []quality.InvariantResult {
	minObs := make(map[string]int, len(c.windows))
	for _, w := range c.windows {
		minObs[w.Name] = w.MinObs
	}

	var results []quality.InvariantResult
	for _, r := range snap.Correlations {
		if !r.HasValue() {
			continue
		}
		required, ok := minObs[r.Window]
		if !ok || r.NObservations >= required {
			continue
		}
		results = append(results, quality.InvariantResult{
			Name:  "min_observations",
			Level: quality.LevelWarn,
			Message: fmt.Sprintf("%s %s window: %d observations below minimum %d",
				r.Symbol, r.Window, r.NObservations, required),
		})
	}
	return results
}

// tableVsBias compares every externally rendered row field-for-field with
// its source bias. A mismatch means two code paths diverged: FAIL.
func (c *Checker) tableVsBias(snap quality.CombinedSnapshot) []quality.InvariantResult {
	biasBySymbol := make(map[string]bias.MacroBias, len(snap.Biases))
	for _, b := range snap.Biases {
		biasBySymbol[b.Symbol] = b
	}

	var results []quality.InvariantResult
	for _, row := range snap.RenderedRows {
		source, ok := biasBySymbol[row.Symbol]
		if !ok {
			results = append(results, quality.InvariantResult{
				Name:    "table_vs_bias",
				Level:   quality.LevelFail,
				Message: fmt.Sprintf("%s: rendered row has no source bias", row.Symbol),
			})
			continue
		}

		var mismatches []string
		if row.Action != ActionForDirection(source.Direction) {
			mismatches = append(mismatches, fmt.Sprintf("action %q != %q", row.Action, ActionForDirection(source.Direction)))
		}
		if row.Score != source.Score {
			mismatches = append(mismatches, "score")
		}
		if row.Confidence != source.Confidence {
			mismatches = append(mismatches, "confidence")
		}
		if row.Narrative != source.Narrative {
			mismatches = append(mismatches, "narrative")
		}

		if len(mismatches) > 0 {
			results = append(results, quality.InvariantResult{
				Name:    "table_vs_bias",
				Level:   quality.LevelFail,
				Message: fmt.Sprintf("%s: rendered row diverged from bias: %s", row.Symbol, strings.Join(mismatches, ", ")),
			})
		}
	}
	return results
}

// driverFreshness checks per-driver staleness bounds keyed by frequency
// class, escalating to FAIL when over a quarter of a currency's
// contributing drivers are stale
func (c *Checker) driverFreshness(snap quality.CombinedSnapshot) ([]quality.InvariantResult, []string) {
	type staleness struct {
		total int
		stale int
	}
	perCurrency := make(map[string]*staleness)
	var staleKeys []string

	for _, age := range snap.IndicatorAges {
		s, ok := perCurrency[age.Currency]
		if !ok {
			s = &staleness{}
			perCurrency[age.Currency] = s
		}
		s.total++

		bound := indicator.FrequencyClass(age.Frequency).StalenessBound()
		if snap.SnapshotTime.Sub(age.AsOf) > bound {
			s.stale++
			staleKeys = append(staleKeys, age.Key)
		}
	}

	var results []quality.InvariantResult
	for currency, s := range perCurrency {
		if s.stale == 0 || s.total == 0 {
			continue
		}
		level := quality.LevelWarn
		if float64(s.stale)/float64(s.total) > staleEscalationRatio {
			level = quality.LevelFail
		}
		results = append(results, quality.InvariantResult{
			Name:  "freshness_sla",
			Level: level,
			Message: fmt.Sprintf("%s: %d of %d contributing drivers stale",
				currency, s.stale, s.total),
		})
	}
	return results, staleKeys
}

// countOutliers counts values outside their documented ranges
func countOutliers(snap quality.CombinedSnapshot) int {
	count := 0
	for _, r := range snap.Correlations {
		if r.HasValue() && (*r.Value < -1 || *r.Value > 1) {
			count++
		}
	}
	for _, b := range snap.Biases {
		if b.Confidence < 0 || b.Confidence > 1 {
			count++
		}
	}
	return count
}

// ActionForDirection maps a bias direction to the rendered table action
func ActionForDirection(d bias.Direction) string {
	switch d {
	case bias.DirectionLong:
		return "buy"
	case bias.DirectionShort:
		return "sell"
	default:
		return "hold"
	}
}
