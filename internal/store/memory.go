package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

// Memory is an in-process TripStore.
type Memory struct {
	mu    sync.RWMutex
	trips map[string]model.Trip
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{trips: make(map[string]model.Trip)}
}

// Get returns the trip with the given id.
func (m *Memory) Get(_ context.Context, id string) (*model.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &trip, nil
}

// List returns all trips, newest first.
func (m *Memory) List(_ context.Context) ([]model.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Save stores the trip by whole-document replacement.
func (m *Memory) Save(_ context.Context, trip *model.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = *trip
	return nil
}

// Delete removes the trip with the given id.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return ErrNotFound
	}
	delete(m.trips, id)
	return nil
}
