package signal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hermes/internal/domain/event"
	"hermes/internal/domain/indicator"
	"hermes/pkg/errors"
)

// ObservationActualSource resolves actuals from the observation store:
// a release has landed once the indicator's series carries an observation
// dated on or after the event's scheduled date.
type ObservationActualSource struct {
	obsRepo indicator.Repository
	catalog indicator.Catalog
}

// NewObservationActualSource creates a new observation-backed actual source
func NewObservationActualSource(obsRepo indicator.Repository, catalog indicator.Catalog) *ObservationActualSource {
	return &ObservationActualSource{
		obsRepo: obsRepo,
		catalog: catalog,
	}
}

var _ ActualSource = (*ObservationActualSource)(nil)

// Actual returns the newest observation value for the event's indicator,
// ok=false while no observation at or past the scheduled date exists.
func (s *ObservationActualSource) Actual(ctx context.Context, ev *event.EconomicEvent) (decimal.Decimal, bool, error) {
	def, ok := s.catalog.ByKey(ev.IndicatorKey)
	if !ok {
		return decimal.Zero, false, errors.Wrapf(errors.ErrNotFound, "indicator %s not in catalogue", ev.IndicatorKey)
	}

	observations, err := s.obsRepo.GetObservations(ctx, def.SeriesID)
	if err != nil {
		return decimal.Zero, false, errors.Wrapf(err, "load observations for %s", def.SeriesID)
	}

	scheduledDate := ev.ScheduledTime.Truncate(24 * time.Hour)
	for i := len(observations) - 1; i >= 0; i-- {
		obs := observations[i]
		if obs.Value == nil {
			continue
		}
		if obs.Date.Before(scheduledDate) {
			// Observations are date-ascending, nothing newer exists
			return decimal.Zero, false, nil
		}
		return decimal.NewFromFloat(*obs.Value), true, nil
	}
	return decimal.Zero, false, nil
}
