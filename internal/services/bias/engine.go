package bias

import (
	"math"
	"strings"
	"time"

	"hermes/internal/domain/bias"
	"hermes/internal/domain/correlation"
	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/event"
	"hermes/pkg/logger"
)

// Driver weights. The weighted sum is normalized by the weights of drivers
// actually present, so an absent driver shifts nothing toward neutral.
const (
	usdBiasWeight  = 1.0
	counterWeight  = 1.0
	corrWeight     = 0.5
	surpriseWeight = 0.75
)

// Pair maps a traded symbol to its base and quote currency
type Pair struct {
	Symbol string
	Base   string
	Quote  string
}

// InvolvesUSD reports whether either leg is USD
func (p Pair) InvolvesUSD() bool {
	return p.Base == "USD" || p.Quote == "USD"
}

// Engine derives a directional macro bias per symbol from currency scores,
// correlation results and unexpired release surprises.
type Engine struct {
	pairs              map[string]Pair
	longWindow         string
	directionThreshold float64
	confidenceFloor    float64
	minDrivers         int
	log                *logger.Logger
}

// NewEngine creates a new bias scoring engine
func NewEngine(pairs map[string]Pair, longWindow string, directionThreshold, confidenceFloor float64, minDrivers int) *Engine {
	return &Engine{
		pairs:              pairs,
		longWindow:         longWindow,
		directionThreshold: directionThreshold,
		confidenceFloor:    confidenceFloor,
		minDrivers:         minDrivers,
		log:                logger.Get().With("component", "bias_engine"),
	}
}

// Inputs is everything one bias computation reads. The caller assembles it
// from the current run's diagnosis and correlations plus stored releases.
type Inputs struct {
	Scores       map[string]diagnosis.CurrencyScore
	Correlations []correlation.Result
	Releases     []event.EconomicRelease
}

// Compute builds the MacroBias for one symbol. It never fails: with zero
// available drivers it emits a neutral, zero-confidence row stating
// insufficient data.
func (e *Engine) Compute(symbol string, in Inputs, now time.Time) *bias.MacroBias {
	pair, known := e.pairs[symbol]
	if !known {
		pair = parsePair(symbol)
	}

	drivers, total := e.buildDrivers(pair, in)

	result := &bias.MacroBias{
		Symbol:     symbol,
		Drivers:    drivers,
		Meta:       bias.Meta{DriversUsed: len(drivers), DriversTotal: total},
		ComputedAt: now,
	}

	if len(drivers) == 0 {
		result.Direction = bias.DirectionNeutral
		result.Narrative = insufficientDataNarrative(symbol)
		return result
	}

	var weightedSum, usedWeight float64
	for _, d := range drivers {
		weightedSum += d.Value * d.Weight
		usedWeight += d.Weight
	}
	score := weightedSum / usedWeight

	coverage := float64(len(drivers)) / float64(total)
	if coverage > 1 {
		coverage = 1
	}
	confidence := math.Abs(score) * coverage

	direction := bias.DirectionFromScore(score, e.directionThreshold)

	// Thin coverage or weak conviction forces neutral regardless of the
	// score's sign; the score itself is kept for the audit trail.
	if confidence < e.confidenceFloor || len(drivers) < e.minDrivers {
		direction = bias.DirectionNeutral
	}

	result.Score = score
	result.Direction = direction
	result.Confidence = confidence
	result.Narrative = buildNarrative(symbol, score, direction, confidence, drivers, result.Meta)

	return result
}

// buildDrivers assembles the fixed driver set for a pair.
// Returns the drivers present and the total potential driver count.
func (e *Engine) buildDrivers(pair Pair, in Inputs) ([]bias.Driver, int) {
	var drivers []bias.Driver

	// usd_bias and counter_currency_bias potential slots plus
	// correlation_alignment, then one slot per candidate release
	total := 3 + len(in.Releases)

	usdScore, hasUSD := in.Scores["USD"]
	if pair.InvolvesUSD() && hasUSD {
		sign := 1.0
		if pair.Quote == "USD" {
			sign = -1 // USD strength works against XXX/USD
		}
		drivers = append(drivers, bias.Driver{
			Key:    "usd_bias",
			Value:  clamp(usdScore.TotalScore * sign),
			Weight: usdBiasWeight,
		})
	}

	if d, ok := counterDriver(pair, in.Scores); ok {
		drivers = append(drivers, d)
	}

	if d, ok := e.correlationDriver(pair, in, drivers); ok {
		drivers = append(drivers, d)
	}

	for _, release := range in.Releases {
		if d, ok := surpriseDriver(pair, release); ok {
			drivers = append(drivers, d)
		}
	}

	return drivers, total
}

// counterDriver scores the non-USD leg(s) of the pair
func counterDriver(pair Pair, scores map[string]diagnosis.CurrencyScore) (bias.Driver, bool) {
	if pair.InvolvesUSD() {
		other := pair.Base
		sign := 1.0
		if pair.Base == "USD" {
			other = pair.Quote
			sign = -1 // hawkish quote currency works against USD/XXX
		}
		s, ok := scores[other]
		if !ok {
			return bias.Driver{}, false
		}
		return bias.Driver{
			Key:    "counter_currency_bias",
			Value:  clamp(s.TotalScore * sign),
			Weight: counterWeight,
		}, true
	}

	// Cross: net the two legs into one driver
	base, baseOK := scores[pair.Base]
	quote, quoteOK := scores[pair.Quote]
	if !baseOK || !quoteOK {
		return bias.Driver{}, false
	}
	return bias.Driver{
		Key:    "counter_currency_bias",
		Value:  clamp((base.TotalScore - quote.TotalScore) / 2),
		Weight: counterWeight,
	}, true
}

// correlationDriver reflects whether the long-window benchmark correlation
// confirms or contradicts the direction the currency drivers imply
func (e *Engine) correlationDriver(pair Pair, in Inputs, currencyDrivers []bias.Driver) (bias.Driver, bool) {
	var longCorr *float64
	for _, r := range in.Correlations {
		if r.Window == e.longWindow && r.HasValue() {
			longCorr = r.Value
			break
		}
	}
	if longCorr == nil {
		return bias.Driver{}, false
	}

	implied := 0.0
	for _, d := range currencyDrivers {
		implied += d.Value
	}
	if implied == 0 {
		return bias.Driver{}, false
	}
	impliedSign := math.Copysign(1, implied)

	// Structural expectation against a dollar benchmark: XXX/USD moves
	// inversely with it, USD/XXX with it. Crosses carry no expectation.
	expected := 0.0
	switch {
	case pair.Quote == "USD":
		expected = -1
	case pair.Base == "USD":
		expected = 1
	default:
		return bias.Driver{}, false
	}

	agreement := math.Abs(*longCorr)
	if math.Copysign(1, *longCorr) != expected {
		agreement = -agreement // the transmission channel is broken
	}

	return bias.Driver{
		Key:    "correlation_alignment",
		Value:  clamp(agreement * impliedSign),
		Weight: corrWeight,
	}, true
}

// surpriseDriver converts one unexpired release into a pair-signed driver
func surpriseDriver(pair Pair, release event.EconomicRelease) (bias.Driver, bool) {
	posSign := 0.0
	switch release.Currency {
	case pair.Base:
		posSign = 1
	case pair.Quote:
		posSign = -1
	default:
		return bias.Driver{}, false
	}

	dirSign := 0.0
	switch release.SurpriseDirection {
	case event.SurprisePositive:
		dirSign = 1
	case event.SurpriseNegative:
		dirSign = -1
	default:
		return bias.Driver{}, false
	}

	return bias.Driver{
		Key:    "event_surprise:" + release.IndicatorKey,
		Value:  clamp(math.Abs(release.SurpriseScore) * dirSign * posSign),
		Weight: surpriseWeight,
	}, true
}

// PairsFor builds the symbol-to-pair map from "EUR/USD" style symbols
func PairsFor(symbols []string) map[string]Pair {
	pairs := make(map[string]Pair, len(symbols))
	for _, s := range symbols {
		pairs[s] = parsePair(s)
	}
	return pairs
}

// parsePair splits "EUR/USD" style symbols when no explicit mapping exists
func parsePair(symbol string) Pair {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return Pair{Symbol: symbol}
	}
	return Pair{Symbol: symbol, Base: parts[0], Quote: parts[1]}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
