package journal

import (
	"context"
	"testing"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

func TestMemoryAppendReplay(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	for i, text := range []string{"make it 3 days", "Done, trimmed to 3 days.", "thanks"} {
		role := model.RoleUser
		if i == 1 {
			role = model.RoleModel
		}
		seq, err := m.Append(ctx, &model.Message{TripID: "trip-1", Role: role, Text: text})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != uint64(i+1) {
			t.Errorf("sequence = %d, want %d", seq, i+1)
		}
	}
	if _, err := m.Append(ctx, &model.Message{TripID: "trip-2", Text: "other trip"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, last, hasMore, err := m.Replay(ctx, "trip-1", 0, 10)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(msgs) != 3 || hasMore {
		t.Fatalf("replay returned %d messages, hasMore=%v", len(msgs), hasMore)
	}
	if last != 3 {
		t.Errorf("last sequence = %d", last)
	}
	if msgs[1].Role != model.RoleModel || msgs[1].Text != "Done, trimmed to 3 days." {
		t.Errorf("message order wrong: %+v", msgs[1])
	}

	// Resume past a cursor with a limit.
	msgs, _, hasMore, err = m.Replay(ctx, "trip-1", 1, 1)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sequence != 2 || !hasMore {
		t.Errorf("cursor replay = %+v hasMore=%v", msgs, hasMore)
	}
}

func TestMemoryTailReturnsNewest(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		text := "turn " + string(rune('a'+i))
		if _, err := m.Append(ctx, &model.Message{TripID: "trip-1", Role: model.RoleUser, Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	msgs, err := m.Tail(ctx, "trip-1", 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Tail returned %d messages, want 3", len(msgs))
	}
	if msgs[0].Text != "turn e" || msgs[2].Text != "turn g" {
		t.Errorf("Tail window = %q..%q, want the newest three in order", msgs[0].Text, msgs[2].Text)
	}
	if msgs[2].Sequence != 7 {
		t.Errorf("newest sequence = %d, want 7", msgs[2].Sequence)
	}

	// A short transcript comes back whole.
	msgs, err = m.Tail(ctx, "trip-1", 20)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(msgs) != 7 {
		t.Errorf("Tail returned %d messages, want 7", len(msgs))
	}
}
