// Package store defines the trip document store. Trips are saved by
// whole-document replacement keyed by id; last writer wins.
package store

import (
	"context"
	"errors"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

// ErrNotFound is returned when a trip id is unknown.
var ErrNotFound = errors.New("trip not found")

// TripStore is an opaque key-value document store for trips.
type TripStore interface {
	// Get returns the trip with the given id.
	Get(ctx context.Context, id string) (*model.Trip, error)

	// List returns all trips, newest first.
	List(ctx context.Context) ([]model.Trip, error)

	// Save stores the trip, replacing any existing document with the
	// same id wholesale.
	Save(ctx context.Context, trip *model.Trip) error

	// Delete removes the trip with the given id.
	Delete(ctx context.Context, id string) error
}
