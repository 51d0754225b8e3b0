package diagnosis

import "time"

// RegimeLabel classifies a single currency's macro stance
type RegimeLabel string

const (
	RegimeHawkish RegimeLabel = "hawkish"
	RegimeDovish  RegimeLabel = "dovish"
	RegimeNeutral RegimeLabel = "neutral"
)

// Valid checks if regime label is valid
func (r RegimeLabel) Valid() bool {
	switch r {
	case RegimeHawkish, RegimeDovish, RegimeNeutral:
		return true
	}
	return false
}

// String returns string representation
func (r RegimeLabel) String() string {
	return string(r)
}

// GlobalRegime classifies the overall macro environment
type GlobalRegime string

const (
	RegimeRiskOn   GlobalRegime = "risk_on"
	RegimeRiskOff  GlobalRegime = "risk_off"
	RegimeRiskFlat GlobalRegime = "neutral"
)

// Valid checks if global regime is valid
func (g GlobalRegime) Valid() bool {
	switch g {
	case RegimeRiskOn, RegimeRiskOff, RegimeRiskFlat:
		return true
	}
	return false
}

// String returns string representation
func (g GlobalRegime) String() string {
	return string(g)
}

// CurrencyScore is the aggregated macro vote for one currency.
// DriversUsed counts indicators that actually contributed; DriversTotal is
// the configured catalogue size for the currency. The gap between the two
// feeds the quality checker's coverage invariants.
type CurrencyScore struct {
	Currency     string      `db:"currency"`
	TotalScore   float64     `db:"total_score"`
	Regime       RegimeLabel `db:"regime"`
	DriversUsed  int         `db:"drivers_used"`
	DriversTotal int         `db:"drivers_total"`
	StaleDrivers int         `db:"stale_drivers"`
	ComputedAt   time.Time   `db:"computed_at"`
}

// Diagnosis is the full output of one diagnosis pass
type Diagnosis struct {
	CurrencyScores map[string]CurrencyScore
	Regime         GlobalRegime
	GlobalScore    float64
	USDBias        string // "bullish" | "bearish" | "neutral"
	MacroQuadrant  string // growth/inflation quadrant, e.g. "reflation"
	ComputedAt     time.Time
}

// ScoreFor returns the score for a currency, reporting presence
func (d Diagnosis) ScoreFor(currency string) (CurrencyScore, bool) {
	s, ok := d.CurrencyScores[currency]
	return s, ok
}
