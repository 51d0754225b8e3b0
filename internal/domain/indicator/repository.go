package indicator

import (
	"context"
)

// Repository defines the interface for indicator observation access
type Repository interface {
	// UpsertObservations stores observations, revising existing (series_id, date) rows
	UpsertObservations(ctx context.Context, observations []Observation) error

	// GetObservations returns all observations for a series ordered by date ascending
	GetObservations(ctx context.Context, seriesID string) ([]Observation, error)
}

// Catalog provides the static indicator definitions
type Catalog interface {
	// All returns every configured indicator definition
	All() []Definition

	// ByCurrency returns definitions for one currency
	ByCurrency(currency string) []Definition

	// ByKey returns one definition by its key
	ByKey(key string) (Definition, bool)
}
