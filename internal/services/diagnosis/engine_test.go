package diagnosis

import (
	"math"
	"testing"
	"time"

	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/indicator"
)

func fptr(v float64) *float64 { return &v }

func snap(key, currency, category string, dir indicator.Directionality, weight float64, current, prior *float64, asOf time.Time) indicator.Snapshot {
	return indicator.Snapshot{
		Definition: indicator.Definition{
			Key:            key,
			Currency:       currency,
			Category:       category,
			Directionality: dir,
			Weight:         weight,
			Frequency:      indicator.FreqMonthly,
		},
		Current: current,
		Prior:   prior,
		AsOf:    asOf,
	}
}

func TestComputeFromSnapshots_SingleDriverForcedNeutral(t *testing.T) {
	// CPI rising 3.1 -> 3.4, inflation-up is hawkish (higher is positive),
	// but one driver is below the coverage floor
	now := time.Now()
	engine := NewEngine(nil, nil, 3)

	snapshots := []indicator.Snapshot{
		snap("us_cpi_yoy", "USD", "inflation", indicator.HigherIsPositive, 1.0, fptr(3.4), fptr(3.1), now),
	}

	out := engine.computeFromSnapshots(snapshots, now)
	usd, ok := out.Diagnosis.ScoreFor("USD")
	if !ok {
		t.Fatal("missing USD score")
	}

	if usd.TotalScore <= 0 {
		t.Errorf("rising CPI with higher-is-positive should vote hawkish, got score %v", usd.TotalScore)
	}
	if usd.Regime != diagnosis.RegimeNeutral {
		t.Errorf("one usable driver below minUsable must force neutral, got %s", usd.Regime)
	}
	if usd.DriversUsed != 1 || usd.DriversTotal != 1 {
		t.Errorf("drivers accounting wrong: used %d total %d", usd.DriversUsed, usd.DriversTotal)
	}
}

func TestComputeFromSnapshots_MissingValueExcludedBothSides(t *testing.T) {
	now := time.Now()
	engine := NewEngine(nil, nil, 1)

	// Two drivers: one votes +1 at weight 1.0, the other is unusable at
	// weight 9.0. The missing one must not appear in the denominator.
	snapshots := []indicator.Snapshot{
		snap("a", "USD", "growth", indicator.HigherIsPositive, 1.0, fptr(2), fptr(1), now),
		snap("b", "USD", "growth", indicator.HigherIsPositive, 9.0, nil, fptr(1), now),
	}

	out := engine.computeFromSnapshots(snapshots, now)
	usd := out.Diagnosis.CurrencyScores["USD"]

	if math.Abs(usd.TotalScore-1.0) > 1e-9 {
		t.Errorf("score should normalize by used weight only, got %v want 1.0", usd.TotalScore)
	}
	if usd.DriversUsed != 1 || usd.DriversTotal != 2 {
		t.Errorf("drivers accounting wrong: used %d total %d", usd.DriversUsed, usd.DriversTotal)
	}
}

func TestComputeFromSnapshots_LowerIsPositiveFlipsVote(t *testing.T) {
	now := time.Now()
	engine := NewEngine(nil, nil, 1)

	// Unemployment rising is negative for the currency
	snapshots := []indicator.Snapshot{
		snap("us_unemployment", "USD", "labor", indicator.LowerIsPositive, 1.0, fptr(4.4), fptr(4.1), now),
	}

	out := engine.computeFromSnapshots(snapshots, now)
	usd := out.Diagnosis.CurrencyScores["USD"]

	if usd.TotalScore >= 0 {
		t.Errorf("rising lower-is-positive indicator must vote negative, got %v", usd.TotalScore)
	}
}

func TestComputeFromSnapshots_StaleDriverCounted(t *testing.T) {
	now := time.Now()
	engine := NewEngine(nil, nil, 1)

	// Monthly staleness bound is 45 days
	stale := now.AddDate(0, 0, -60)
	snapshots := []indicator.Snapshot{
		snap("a", "USD", "growth", indicator.HigherIsPositive, 1.0, fptr(2), fptr(1), stale),
	}

	out := engine.computeFromSnapshots(snapshots, now)
	if out.Diagnosis.CurrencyScores["USD"].StaleDrivers != 1 {
		t.Error("driver past its staleness bound should be counted stale")
	}
}

func TestRegimeFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  diagnosis.RegimeLabel
	}{
		{0.5, diagnosis.RegimeHawkish},
		{-0.5, diagnosis.RegimeDovish},
		{0.1, diagnosis.RegimeNeutral},
		{-0.2, diagnosis.RegimeNeutral},
	}
	for _, tc := range cases {
		if got := regimeFromScore(tc.score); got != tc.want {
			t.Errorf("regimeFromScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestUSDBias(t *testing.T) {
	cases := []struct {
		name   string
		scores map[string]diagnosis.CurrencyScore
		want   string
	}{
		{"bullish", map[string]diagnosis.CurrencyScore{"USD": {TotalScore: 0.4}}, "bullish"},
		{"bearish", map[string]diagnosis.CurrencyScore{"USD": {TotalScore: -0.4}}, "bearish"},
		{"inside threshold", map[string]diagnosis.CurrencyScore{"USD": {TotalScore: 0.1}}, "neutral"},
		{"no usd", map[string]diagnosis.CurrencyScore{"EUR": {TotalScore: 0.9}}, "neutral"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := USDBias(tc.scores); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestQuadrant(t *testing.T) {
	cases := []struct {
		growth, inflation float64
		want              string
	}{
		{1, 1, "reflation"},
		{1, -1, "goldilocks"},
		{-1, 1, "stagflation"},
		{-1, -1, "deflation"},
	}
	for _, tc := range cases {
		if got := quadrant(tc.growth, tc.inflation); got != tc.want {
			t.Errorf("quadrant(%v, %v) = %s, want %s", tc.growth, tc.inflation, got, tc.want)
		}
	}
}
