package model

import (
	"time"
)

// Role represents the sender of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat turn in a trip's refinement session. The per-trip
// message list is append-only.
type Message struct {
	ID        string    `json:"id"`
	TripID    string    `json:"tripId"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Journal sequence, populated on read.
	Sequence uint64 `json:"sequence,omitempty"`
}

// ChatRequest is the request body for one refinement turn.
type ChatRequest struct {
	Text string `json:"text"`
}

// ThoughtEvent carries the growing thought text during a streamed update.
type ThoughtEvent struct {
	Thought string `json:"thought"`
}

// TripUpdateEvent carries the merged itinerary after a structured update.
type TripUpdateEvent struct {
	ResponseText string    `json:"responseText"`
	Data         *TripData `json:"data,omitempty"`
}

// ErrorEvent represents a stream error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent keeps long-lived SSE connections alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ListMessagesResponse is the response for replaying a trip transcript.
type ListMessagesResponse struct {
	Messages     []Message `json:"messages"`
	HasMore      bool      `json:"has_more"`
	LastSequence uint64    `json:"last_sequence"`
}
