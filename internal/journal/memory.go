package journal

import (
	"context"
	"sync"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

// Memory is an in-process Transcript for tests and single-node setups
// where JetStream is not configured.
type Memory struct {
	mu       sync.RWMutex
	sequence uint64
	messages map[string][]model.Message
}

// NewMemory creates an empty in-memory transcript.
func NewMemory() *Memory {
	return &Memory{messages: make(map[string][]model.Message)}
}

// Append records one chat turn.
func (m *Memory) Append(_ context.Context, msg *model.Message) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence++
	stored := *msg
	stored.Sequence = m.sequence
	m.messages[msg.TripID] = append(m.messages[msg.TripID], stored)
	return m.sequence, nil
}

// Replay returns messages for a trip after the given sequence.
func (m *Memory) Replay(_ context.Context, tripID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Message
	var lastSequence uint64
	for _, msg := range m.messages[tripID] {
		if msg.Sequence <= afterSequence {
			continue
		}
		if len(out) == limit {
			return out, lastSequence, true, nil
		}
		out = append(out, msg)
		lastSequence = msg.Sequence
	}
	return out, lastSequence, false, nil
}

// Tail returns the most recent messages for a trip, oldest first.
func (m *Memory) Tail(_ context.Context, tripID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[tripID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
