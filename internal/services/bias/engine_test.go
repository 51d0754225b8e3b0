package bias

import (
	"math"
	"testing"
	"time"

	"hermes/internal/domain/bias"
	"hermes/internal/domain/correlation"
	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/event"
)

func fptr(v float64) *float64 { return &v }

func newTestEngine() *Engine {
	pairs := PairsFor([]string{"EUR/USD", "USD/JPY", "EUR/GBP"})
	return NewEngine(pairs, "12m", 0.15, 0.3, 3)
}

func TestCompute_ZeroDriversNeutral(t *testing.T) {
	engine := newTestEngine()

	b := engine.Compute("EUR/USD", Inputs{}, time.Now())

	if b.Direction != bias.DirectionNeutral {
		t.Errorf("direction = %s, want neutral", b.Direction)
	}
	if b.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", b.Confidence)
	}
	if b.Narrative != "EUR/USD macro bias neutral: insufficient data, no drivers available." {
		t.Errorf("unexpected narrative %q", b.Narrative)
	}
	if b.Meta.DriversUsed != 0 || b.Meta.DriversTotal != 3 {
		t.Errorf("meta = %+v, want 0/3", b.Meta)
	}
}

func TestCompute_HawkishEURDovishUSD(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Scores: map[string]diagnosis.CurrencyScore{
			"USD": {Currency: "USD", TotalScore: -0.6},
			"EUR": {Currency: "EUR", TotalScore: 0.8},
		},
		Correlations: []correlation.Result{
			{Symbol: "EUR/USD", Window: "12m", Value: fptr(-0.7)},
		},
	}

	b := engine.Compute("EUR/USD", in, time.Now())

	// usd_bias: -0.6 * -1 = +0.6; counter: +0.8; correlation confirms:
	// long corr -0.7 matches the expected negative sign for a USD-quoted
	// pair and the currency drivers point up, so it adds +0.7 * 0.5 weight
	if b.Score <= 0 {
		t.Errorf("score = %v, want positive for hawkish EUR / dovish USD", b.Score)
	}
	if b.Direction != bias.DirectionLong {
		t.Errorf("direction = %s, want long", b.Direction)
	}
	if len(b.Drivers) != 3 {
		t.Fatalf("got %d drivers, want 3", len(b.Drivers))
	}
	if b.Meta.DriversUsed != 3 || b.Meta.DriversTotal != 3 {
		t.Errorf("meta = %+v, want 3/3", b.Meta)
	}
	if !b.Consistent(0.15) {
		t.Error("stored direction must round-trip through DirectionFromScore")
	}
}

func TestCompute_ForcedNeutralBelowMinDrivers(t *testing.T) {
	engine := newTestEngine()

	// Only USD score available: two drivers (usd_bias missing counter leg)
	in := Inputs{
		Scores: map[string]diagnosis.CurrencyScore{
			"USD": {Currency: "USD", TotalScore: -0.9},
		},
	}

	b := engine.Compute("EUR/USD", in, time.Now())

	if len(b.Drivers) >= 3 {
		t.Fatalf("setup broken, got %d drivers", len(b.Drivers))
	}
	if b.Direction != bias.DirectionNeutral {
		t.Errorf("thin coverage must force neutral, got %s", b.Direction)
	}
	if b.Score == 0 {
		t.Error("forced neutral keeps the raw score for the audit trail")
	}
}

func TestCompute_ForcedNeutralBelowConfidenceFloor(t *testing.T) {
	engine := newTestEngine()

	// Three weak drivers: |score| is small so confidence lands under 0.3
	in := Inputs{
		Scores: map[string]diagnosis.CurrencyScore{
			"USD": {Currency: "USD", TotalScore: -0.05},
			"EUR": {Currency: "EUR", TotalScore: 0.05},
		},
		Correlations: []correlation.Result{
			{Symbol: "EUR/USD", Window: "12m", Value: fptr(-0.5)},
		},
	}

	b := engine.Compute("EUR/USD", in, time.Now())

	if b.Confidence >= 0.3 {
		t.Fatalf("setup broken, confidence %v", b.Confidence)
	}
	if b.Direction != bias.DirectionNeutral {
		t.Errorf("confidence below floor must force neutral, got %s", b.Direction)
	}
}

func TestCompute_USDQuoteSignFlip(t *testing.T) {
	engine := newTestEngine()

	scores := map[string]diagnosis.CurrencyScore{
		"USD": {Currency: "USD", TotalScore: 0.5},
		"EUR": {Currency: "EUR", TotalScore: 0},
		"JPY": {Currency: "JPY", TotalScore: 0},
	}

	// Hawkish USD pushes EUR/USD down but USD/JPY up
	eurusd := engine.Compute("EUR/USD", Inputs{Scores: scores}, time.Now())
	usdjpy := engine.Compute("USD/JPY", Inputs{Scores: scores}, time.Now())

	if eurusd.Score >= 0 {
		t.Errorf("EUR/USD score = %v, want negative under hawkish USD", eurusd.Score)
	}
	if usdjpy.Score <= 0 {
		t.Errorf("USD/JPY score = %v, want positive under hawkish USD", usdjpy.Score)
	}
}

func TestCompute_CrossNetsBothLegs(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Scores: map[string]diagnosis.CurrencyScore{
			"EUR": {Currency: "EUR", TotalScore: 0.6},
			"GBP": {Currency: "GBP", TotalScore: -0.2},
		},
	}

	b := engine.Compute("EUR/GBP", in, time.Now())

	if len(b.Drivers) != 1 {
		t.Fatalf("cross should net both legs into one driver, got %d", len(b.Drivers))
	}
	want := (0.6 - (-0.2)) / 2
	if math.Abs(b.Drivers[0].Value-want) > 1e-9 {
		t.Errorf("netted driver value = %v, want %v", b.Drivers[0].Value, want)
	}
}

func TestCompute_SurpriseDriverSigns(t *testing.T) {
	engine := newTestEngine()

	scores := map[string]diagnosis.CurrencyScore{
		"USD": {Currency: "USD", TotalScore: 0},
		"EUR": {Currency: "EUR", TotalScore: 0},
	}
	release := event.EconomicRelease{
		Currency:          "USD",
		IndicatorKey:      "us_nfp_delta",
		SurpriseScore:     0.8,
		SurpriseDirection: event.SurprisePositive,
	}

	b := engine.Compute("EUR/USD", Inputs{
		Scores:   scores,
		Releases: []event.EconomicRelease{release},
	}, time.Now())

	var surprise *bias.Driver
	for i := range b.Drivers {
		if b.Drivers[i].Key == "event_surprise:us_nfp_delta" {
			surprise = &b.Drivers[i]
		}
	}
	if surprise == nil {
		t.Fatal("missing surprise driver")
	}
	// Positive USD surprise works against the base leg of EUR/USD
	if surprise.Value >= 0 {
		t.Errorf("surprise driver value = %v, want negative", surprise.Value)
	}
	if b.Meta.DriversTotal != 4 {
		t.Errorf("total slots = %d, want 4 with one release", b.Meta.DriversTotal)
	}
}

func TestNarrativeDeterministic(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Scores: map[string]diagnosis.CurrencyScore{
			"USD": {Currency: "USD", TotalScore: -0.6},
			"EUR": {Currency: "EUR", TotalScore: 0.8},
		},
		Correlations: []correlation.Result{
			{Symbol: "EUR/USD", Window: "12m", Value: fptr(-0.7)},
		},
	}

	now := time.Now()
	first := engine.Compute("EUR/USD", in, now)
	second := engine.Compute("EUR/USD", in, now)

	if first.Narrative != second.Narrative {
		t.Error("narrative must be reproducible from identical inputs")
	}

	// And re-renderable from the stored bias alone
	rerendered := buildNarrative(first.Symbol, first.Score, first.Direction, first.Confidence, first.Drivers, first.Meta)
	if rerendered != first.Narrative {
		t.Errorf("re-rendered narrative differs:\n%q\n%q", rerendered, first.Narrative)
	}
}

func TestDirectionFromScoreRoundTrip(t *testing.T) {
	cases := []struct {
		score float64
		want  bias.Direction
	}{
		{0.5, bias.DirectionLong},
		{-0.5, bias.DirectionShort},
		{0.1, bias.DirectionNeutral},
		{-0.15, bias.DirectionNeutral},
	}
	for _, tc := range cases {
		if got := bias.DirectionFromScore(tc.score, 0.15); got != tc.want {
			t.Errorf("DirectionFromScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestPairsFor(t *testing.T) {
	pairs := PairsFor([]string{"EUR/USD", "XAUUSD"})

	p := pairs["EUR/USD"]
	if p.Base != "EUR" || p.Quote != "USD" {
		t.Errorf("parsed pair = %+v", p)
	}
	// Unparseable symbols keep only the symbol name
	if pairs["XAUUSD"].Base != "" {
		t.Errorf("unparseable symbol should have empty legs, got %+v", pairs["XAUUSD"])
	}
}
