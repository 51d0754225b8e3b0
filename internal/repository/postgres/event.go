package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hermes/internal/domain/event"
	"hermes/pkg/errors"
)

// EventRepository implements event.Repository
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

var _ event.Repository = (*EventRepository)(nil)

// UpsertEvent stores an event keyed by its ID. Calendar providers revise
// consensus and scheduling up to release time, so those fields update.
func (r *EventRepository) UpsertEvent(ctx context.Context, e *event.EconomicEvent) error {
	query := `
		INSERT INTO economic_events (
			id, currency, indicator_key, title, scheduled_time,
			previous, consensus, directionality, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			scheduled_time = EXCLUDED.scheduled_time,
			previous = EXCLUDED.previous,
			consensus = EXCLUDED.consensus
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Currency, e.IndicatorKey, e.Title, e.ScheduledTime,
		e.Previous, e.Consensus, e.Directionality, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert event %s", e.ID)
	}
	return nil
}

// GetPendingEvents returns events scheduled inside the window that have no release yet
func (r *EventRepository) GetPendingEvents(ctx context.Context, from, to time.Time) ([]event.EconomicEvent, error) {
	query := `
		SELECT e.id, e.currency, e.indicator_key, e.title, e.scheduled_time,
		       e.previous, e.consensus, e.directionality, e.created_at
		FROM economic_events e
		WHERE e.scheduled_time BETWEEN $1 AND $2
		AND NOT EXISTS (
			SELECT 1 FROM economic_releases r WHERE r.event_id = e.id
		)
		ORDER BY e.scheduled_time ASC
	`

	var events []event.EconomicEvent
	if err := r.db.SelectContext(ctx, &events, query, from, to); err != nil {
		return nil, errors.Wrap(err, "get pending events")
	}
	return events, nil
}

// GetEvent returns one event by ID
func (r *EventRepository) GetEvent(ctx context.Context, id uuid.UUID) (*event.EconomicEvent, error) {
	query := `
		SELECT id, currency, indicator_key, title, scheduled_time,
		       previous, consensus, directionality, created_at
		FROM economic_events
		WHERE id = $1
	`

	e := &event.EconomicEvent{}
	err := r.db.GetContext(ctx, e, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get event %s", id)
	}
	return e, nil
}

// InsertRelease stores a release unless one already exists for the event.
// The unique index on event_id is what makes re-observations collapse into
// the first stored row regardless of which process raced in first.
func (r *EventRepository) InsertRelease(ctx context.Context, rel *event.EconomicRelease) (*event.EconomicRelease, bool, error) {
	query := `
		INSERT INTO economic_releases (
			id, event_id, currency, indicator_key, actual,
			surprise_raw, surprise_pct, surprise_score, surprise_direction, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rel.ID, rel.EventID, rel.Currency, rel.IndicatorKey, rel.Actual,
		rel.SurpriseRaw, rel.SurprisePct, rel.SurpriseScore, rel.SurpriseDirection, rel.ObservedAt,
	)
	if err != nil {
		return nil, false, errors.Wrapf(err, "insert release for event %s", rel.EventID)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, errors.Wrap(err, "release rows affected")
	}
	if inserted > 0 {
		return rel, true, nil
	}

	existing, err := r.GetReleaseByEvent(ctx, rel.EventID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.Wrapf(errors.ErrInconsistentState, "release for event %s vanished after conflict", rel.EventID)
	}
	return existing, false, nil
}

// GetReleaseByEvent returns the release for an event, nil when none exists
func (r *EventRepository) GetReleaseByEvent(ctx context.Context, eventID uuid.UUID) (*event.EconomicRelease, error) {
	query := `
		SELECT id, event_id, currency, indicator_key, actual,
		       surprise_raw, surprise_pct, surprise_score, surprise_direction, observed_at
		FROM economic_releases
		WHERE event_id = $1
	`

	rel := &event.EconomicRelease{}
	err := r.db.GetContext(ctx, rel, query, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get release for event %s", eventID)
	}
	return rel, nil
}

// GetUnexpiredReleases returns releases observed after the cutoff for a currency
func (r *EventRepository) GetUnexpiredReleases(ctx context.Context, currency string, cutoff time.Time) ([]event.EconomicRelease, error) {
	query := `
		SELECT id, event_id, currency, indicator_key, actual,
		       surprise_raw, surprise_pct, surprise_score, surprise_direction, observed_at
		FROM economic_releases
		WHERE currency = $1 AND observed_at > $2
		ORDER BY observed_at DESC
	`

	var releases []event.EconomicRelease
	if err := r.db.SelectContext(ctx, &releases, query, currency, cutoff); err != nil {
		return nil, errors.Wrapf(err, "get unexpired releases for %s", currency)
	}
	return releases, nil
}

// InsertImpactSnapshot stores a snapshot unless one exists for the release
func (r *EventRepository) InsertImpactSnapshot(ctx context.Context, s *event.ImpactSnapshot) error {
	query := `
		INSERT INTO impact_snapshots (
			id, release_id, currency, score_before, score_after,
			regime_before, regime_after, usd_direction_before, usd_direction_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (release_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ReleaseID, s.Currency, s.ScoreBefore, s.ScoreAfter,
		s.RegimeBefore, s.RegimeAfter, s.USDDirectionBefore, s.USDDirectionAfter, s.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert impact snapshot for release %s", s.ReleaseID)
	}
	return nil
}

// GetImpactSnapshot returns the snapshot for a release, nil when none exists
func (r *EventRepository) GetImpactSnapshot(ctx context.Context, releaseID uuid.UUID) (*event.ImpactSnapshot, error) {
	query := `
		SELECT id, release_id, currency, score_before, score_after,
		       regime_before, regime_after, usd_direction_before, usd_direction_after, created_at
		FROM impact_snapshots
		WHERE release_id = $1
	`

	s := &event.ImpactSnapshot{}
	err := r.db.GetContext(ctx, s, query, releaseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get impact snapshot for release %s", releaseID)
	}
	return s, nil
}
