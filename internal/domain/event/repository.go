package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for economic event and release persistence
type Repository interface {
	// UpsertEvent stores an event keyed by its ID
	UpsertEvent(ctx context.Context, e *EconomicEvent) error

	// GetPendingEvents returns events scheduled inside the window that have no release yet
	GetPendingEvents(ctx context.Context, from, to time.Time) ([]EconomicEvent, error)

	// GetEvent returns one event by ID
	GetEvent(ctx context.Context, id uuid.UUID) (*EconomicEvent, error)

	// InsertRelease stores a release unless one already exists for the event.
	// Returns the stored release and whether this call created it.
	InsertRelease(ctx context.Context, r *EconomicRelease) (*EconomicRelease, bool, error)

	// GetReleaseByEvent returns the release for an event, nil when none exists
	GetReleaseByEvent(ctx context.Context, eventID uuid.UUID) (*EconomicRelease, error)

	// GetUnexpiredReleases returns releases observed after the cutoff for a currency
	GetUnexpiredReleases(ctx context.Context, currency string, cutoff time.Time) ([]EconomicRelease, error)

	// InsertImpactSnapshot stores a snapshot unless one exists for the release
	InsertImpactSnapshot(ctx context.Context, s *ImpactSnapshot) error

	// GetImpactSnapshot returns the snapshot for a release, nil when none exists
	GetImpactSnapshot(ctx context.Context, releaseID uuid.UUID) (*ImpactSnapshot, error)
}
