package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/indicator"
)

// EconomicEvent is the scheduled metadata of one calendar release
type EconomicEvent struct {
	ID             uuid.UUID                `db:"id"`
	Currency       string                   `db:"currency"`
	IndicatorKey   string                   `db:"indicator_key"`
	Title          string                   `db:"title"`
	ScheduledTime  time.Time                `db:"scheduled_time"`
	Previous       *decimal.Decimal         `db:"previous"`
	Consensus      *decimal.Decimal         `db:"consensus"`
	Directionality indicator.Directionality `db:"directionality"`
	CreatedAt      time.Time                `db:"created_at"`
}

// SurpriseDirection says whether the surprise favors the event's currency
type SurpriseDirection string

const (
	SurprisePositive SurpriseDirection = "positive"
	SurpriseNegative SurpriseDirection = "negative"
	SurpriseFlat     SurpriseDirection = "flat"
)

// Valid checks if surprise direction is valid
func (s SurpriseDirection) Valid() bool {
	switch s {
	case SurprisePositive, SurpriseNegative, SurpriseFlat:
		return true
	}
	return false
}

// String returns string representation
func (s SurpriseDirection) String() string {
	return string(s)
}

// EconomicRelease is the realized outcome of an event. Append-only:
// at most one release exists per event, re-observations are absorbed.
type EconomicRelease struct {
	ID           uuid.UUID        `db:"id"`
	EventID      uuid.UUID        `db:"event_id"`
	Currency     string           `db:"currency"`
	IndicatorKey string           `db:"indicator_key"`
	Actual       decimal.Decimal  `db:"actual"`
	SurpriseRaw  decimal.Decimal  `db:"surprise_raw"`
	SurprisePct  *decimal.Decimal `db:"surprise_pct"` // nil when consensus is null or zero
	// SurpriseScore is SurprisePct normalized against the indicator's typical
	// surprise magnitude, clamped to [-1, 1].
	SurpriseScore     float64           `db:"surprise_score"`
	SurpriseDirection SurpriseDirection `db:"surprise_direction"`
	ObservedAt        time.Time         `db:"observed_at"`
}

// Expired reports whether the release no longer contributes a bias driver
func (r EconomicRelease) Expired(now time.Time, validity time.Duration) bool {
	return now.Sub(r.ObservedAt) > validity
}

// ImpactSnapshot records the affected currency's state immediately before
// and after the targeted rerun a release triggers. It is the audit trail
// proving whether the bias actually moved post-release.
type ImpactSnapshot struct {
	ID                 uuid.UUID             `db:"id"`
	ReleaseID          uuid.UUID             `db:"release_id"`
	Currency           string                `db:"currency"`
	ScoreBefore        float64               `db:"score_before"`
	ScoreAfter         float64               `db:"score_after"`
	RegimeBefore       diagnosis.RegimeLabel `db:"regime_before"`
	RegimeAfter        diagnosis.RegimeLabel `db:"regime_after"`
	USDDirectionBefore string                `db:"usd_direction_before"`
	USDDirectionAfter  string                `db:"usd_direction_after"`
	CreatedAt          time.Time             `db:"created_at"`
}
