package surprise

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hermes/internal/domain/diagnosis"
	"hermes/internal/domain/event"
	"hermes/internal/domain/indicator"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// defaultTypicalSurprise is the fallback normalization when an indicator
// carries no calibrated typical surprise magnitude. Deliberately large so
// uncalibrated indicators produce small scores instead of saturating.
const defaultTypicalSurprise = 1.0

// Reruner triggers the targeted diagnosis+bias rerun a release demands.
// The surprise engine triggers the rerun but never performs it itself.
type Reruner interface {
	// CurrentState returns the stored diagnosis state for a currency
	CurrentState(ctx context.Context, currency string) (diagnosis.CurrencyScore, string, error)

	// RerunForCurrency recomputes diagnosis and bias for one currency
	// and returns the refreshed state
	RerunForCurrency(ctx context.Context, currency string) (diagnosis.CurrencyScore, string, error)
}

// Engine turns observed actuals into standardized releases with
// before/after impact snapshots.
type Engine struct {
	eventRepo event.Repository
	catalog   indicator.Catalog
	reruner   Reruner
	log       *logger.Logger
}

// NewEngine creates a new surprise engine
func NewEngine(eventRepo event.Repository, catalog indicator.Catalog, reruner Reruner) *Engine {
	return &Engine{
		eventRepo: eventRepo,
		catalog:   catalog,
		reruner:   reruner,
		log:       logger.Get().With("component", "surprise_engine"),
	}
}

// Result pairs a release with its impact snapshot. Created is false when
// the release had already been recorded by an earlier observation.
type Result struct {
	Release        *event.EconomicRelease
	ImpactSnapshot *event.ImpactSnapshot
	Created        bool
}

// ProcessRelease scores an observed actual against the event's consensus.
// Idempotent: re-observing the same event returns the stored release and
// snapshot without duplicating either or re-triggering the rerun.
func (e *Engine) ProcessRelease(ctx context.Context, ev *event.EconomicEvent, actual decimal.Decimal) (*Result, error) {
	now := time.Now()

	release := e.score(ev, actual, now)

	// State strictly before the rerun; this ordering is what makes the
	// snapshot an audit trail of the release's effect.
	scoreBefore, usdBefore, err := e.reruner.CurrentState(ctx, ev.Currency)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot state before release %s", ev.ID)
	}

	stored, created, err := e.eventRepo.InsertRelease(ctx, release)
	if err != nil {
		return nil, errors.Wrapf(err, "insert release for event %s", ev.ID)
	}
	if !created {
		// Duplicate observation, absorbed. The original snapshot stands.
		e.log.Debug("Release already recorded", "event", ev.ID)
		snapshot, err := e.eventRepo.GetImpactSnapshot(ctx, stored.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "load impact snapshot for release %s", stored.ID)
		}
		return &Result{Release: stored, ImpactSnapshot: snapshot, Created: false}, nil
	}

	scoreAfter, usdAfter, err := e.reruner.RerunForCurrency(ctx, ev.Currency)
	if err != nil {
		return nil, errors.Wrapf(err, "targeted rerun for %s", ev.Currency)
	}

	snapshot := &event.ImpactSnapshot{
		ID:                 uuid.New(),
		ReleaseID:          stored.ID,
		Currency:           ev.Currency,
		ScoreBefore:        scoreBefore.TotalScore,
		ScoreAfter:         scoreAfter.TotalScore,
		RegimeBefore:       scoreBefore.Regime,
		RegimeAfter:        scoreAfter.Regime,
		USDDirectionBefore: usdBefore,
		USDDirectionAfter:  usdAfter,
		CreatedAt:          now,
	}
	if err := e.eventRepo.InsertImpactSnapshot(ctx, snapshot); err != nil {
		return nil, errors.Wrapf(err, "insert impact snapshot for release %s", stored.ID)
	}

	e.log.Info("Release processed",
		"event", ev.ID,
		"currency", ev.Currency,
		"surprise_score", stored.SurpriseScore,
		"direction", stored.SurpriseDirection,
	)

	return &Result{Release: stored, ImpactSnapshot: snapshot, Created: true}, nil
}

// score computes the standardized surprise for an actual
func (e *Engine) score(ev *event.EconomicEvent, actual decimal.Decimal, now time.Time) *event.EconomicRelease {
	release := &event.EconomicRelease{
		ID:                uuid.New(),
		EventID:           ev.ID,
		Currency:          ev.Currency,
		IndicatorKey:      ev.IndicatorKey,
		Actual:            actual,
		SurpriseDirection: event.SurpriseFlat,
		ObservedAt:        now,
	}

	if ev.Consensus == nil {
		// No consensus, no surprise to standardize
		return release
	}

	raw := actual.Sub(*ev.Consensus)
	release.SurpriseRaw = raw
	release.SurpriseDirection = direction(raw, ev.Directionality)

	// Direction still holds on a zero consensus; only pct and score need
	// the division
	if ev.Consensus.IsZero() {
		return release
	}

	pct := raw.Div(ev.Consensus.Abs())
	release.SurprisePct = &pct

	typical := defaultTypicalSurprise
	if def, ok := e.catalog.ByKey(ev.IndicatorKey); ok && def.TypicalSurprisePct > 0 {
		typical = def.TypicalSurprisePct
	}

	score, _ := pct.Float64()
	score /= typical
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	release.SurpriseScore = score
	return release
}

// direction says whether the surprise favors the event's currency under
// its directionality rule
func direction(raw decimal.Decimal, d indicator.Directionality) event.SurpriseDirection {
	if raw.IsZero() {
		return event.SurpriseFlat
	}

	favorable := raw.IsPositive()
	if d == indicator.LowerIsPositive {
		favorable = !favorable
	}

	if favorable {
		return event.SurprisePositive
	}
	return event.SurpriseNegative
}
