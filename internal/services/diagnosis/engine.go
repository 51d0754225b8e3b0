package diagnosis

import (
	"context"
	"time"

	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/indicator"
	"hermes/internal/services/transform"
	"hermes/pkg/logger"
)

// Thresholds separating hawkish/dovish and risk-on/risk-off from noise
const (
	regimeThreshold  = 0.2
	usdBiasThreshold = 0.15
)

// Engine aggregates transformed indicator values into per-currency scores
// and a global macro regime.
type Engine struct {
	catalog   indicator.Catalog
	layer     *transform.Layer
	minUsable int
	log       *logger.Logger
}

// NewEngine creates a new diagnosis engine.
// minUsable is the hard floor below which a currency's regime is forced
// neutral: a near-empty weighted sum is not a meaningful signal.
func NewEngine(catalog indicator.Catalog, layer *transform.Layer, minUsable int) *Engine {
	return &Engine{
		catalog:   catalog,
		layer:     layer,
		minUsable: minUsable,
		log:       logger.Get().With("component", "diagnosis_engine"),
	}
}

// Output is one diagnosis pass plus the indicator snapshots that fed it.
// Snapshots carry the per-series as-of dates the quality checker needs.
type Output struct {
	Diagnosis diagnosis.Diagnosis
	Snapshots []indicator.Snapshot
}

// Compute runs a full diagnosis pass over the indicator catalogue
func (e *Engine) Compute(ctx context.Context) (*Output, error) {
	defs := e.catalog.All()
	snapshots := e.layer.Snapshots(ctx, defs)
	out := e.computeFromSnapshots(snapshots, time.Now())
	e.log.Info("Diagnosis computed",
		"currencies", len(out.Diagnosis.CurrencyScores),
		"regime", out.Diagnosis.Regime,
		"global_score", out.Diagnosis.GlobalScore,
	)
	return out, nil
}

// ComputeForCurrency runs a targeted pass limited to one currency's
// indicators, used for post-release reruns.
func (e *Engine) ComputeForCurrency(ctx context.Context, currency string) (*Output, error) {
	defs := e.catalog.ByCurrency(currency)
	snapshots := e.layer.Snapshots(ctx, defs)
	return e.computeFromSnapshots(snapshots, time.Now()), nil
}

// currencyAccumulator collects the weighted votes for one currency
type currencyAccumulator struct {
	weightedSum  float64
	usedWeight   float64
	driversUsed  int
	driversTotal int
	staleDrivers int
}

func (e *Engine) computeFromSnapshots(snapshots []indicator.Snapshot, now time.Time) *Output {
	perCurrency := make(map[string]*currencyAccumulator)
	var globalSum, globalWeight float64
	var growthSum, inflationSum float64

	for _, snap := range snapshots {
		def := snap.Definition

		acc, ok := perCurrency[def.Currency]
		if !ok {
			acc = &currencyAccumulator{}
			perCurrency[def.Currency] = acc
		}
		acc.driversTotal++

		// A missing transformed value is excluded from numerator AND
		// denominator. Coercing it to zero would silently drag the
		// normalized score toward neutral.
		if !snap.Usable() {
			continue
		}

		vote := trendVote(*snap.Current, *snap.Prior) * def.Directionality.Sign()

		acc.weightedSum += vote * def.Weight
		acc.usedWeight += def.Weight
		acc.driversUsed++

		if now.Sub(snap.AsOf) > def.Frequency.StalenessBound() {
			acc.staleDrivers++
		}

		globalSum += vote * def.Weight
		globalWeight += def.Weight

		switch def.Category {
		case "growth", "labor":
			growthSum += vote * def.Weight
		case "inflation":
			inflationSum += vote * def.Weight
		}
	}

	scores := make(map[string]diagnosis.CurrencyScore, len(perCurrency))
	for currency, acc := range perCurrency {
		score := 0.0
		if acc.usedWeight > 0 {
			score = acc.weightedSum / acc.usedWeight
		}

		regime := regimeFromScore(score)
		if acc.driversUsed < e.minUsable {
			// Hard rule, regardless of the raw score
			regime = diagnosis.RegimeNeutral
		}

		scores[currency] = diagnosis.CurrencyScore{
			Currency:     currency,
			TotalScore:   score,
			Regime:       regime,
			DriversUsed:  acc.driversUsed,
			DriversTotal: acc.driversTotal,
			StaleDrivers: acc.staleDrivers,
			ComputedAt:   now,
		}
	}

	globalScore := 0.0
	if globalWeight > 0 {
		globalScore = globalSum / globalWeight
	}

	return &Output{
		Diagnosis: diagnosis.Diagnosis{
			CurrencyScores: scores,
			Regime:         globalRegimeFromScore(globalScore),
			GlobalScore:    globalScore,
			USDBias:        USDBias(scores),
			MacroQuadrant:  quadrant(growthSum, inflationSum),
			ComputedAt:     now,
		},
		Snapshots: snapshots,
	}
}

// trendVote derives a directional vote from the trailing trend
func trendVote(current, prior float64) float64 {
	switch {
	case current > prior:
		return 1
	case current < prior:
		return -1
	default:
		return 0
	}
}

func regimeFromScore(score float64) diagnosis.RegimeLabel {
	switch {
	case score > regimeThreshold:
		return diagnosis.RegimeHawkish
	case score < -regimeThreshold:
		return diagnosis.RegimeDovish
	default:
		return diagnosis.RegimeNeutral
	}
}

func globalRegimeFromScore(score float64) diagnosis.GlobalRegime {
	switch {
	case score > regimeThreshold:
		return diagnosis.RegimeRiskOn
	case score < -regimeThreshold:
		return diagnosis.RegimeRiskOff
	default:
		return diagnosis.RegimeRiskFlat
	}
}

// USDBias maps the stored USD score to a direction label. Exported so the
// pipeline can reproduce the label from persisted scores without a rerun.
func USDBias(scores map[string]diagnosis.CurrencyScore) string {
	usd, ok := scores["USD"]
	if !ok {
		return "neutral"
	}
	switch {
	case usd.TotalScore > usdBiasThreshold:
		return "bullish"
	case usd.TotalScore < -usdBiasThreshold:
		return "bearish"
	default:
		return "neutral"
	}
}

// quadrant names the growth/inflation combination
func quadrant(growth, inflation float64) string {
	switch {
	case growth >= 0 && inflation >= 0:
		return "reflation"
	case growth >= 0 && inflation < 0:
		return "goldilocks"
	case growth < 0 && inflation >= 0:
		return "stagflation"
	default:
		return "deflation"
	}
}
