package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

const (
	// StreamName is the name of the trip transcripts stream.
	StreamName = "TRIPS"

	// SubjectPrefix is the prefix for all transcript subjects.
	SubjectPrefix = "trip"
)

// Transcript is the append-only chat log for trips.
type Transcript interface {
	// Append publishes one chat turn and returns its sequence.
	Append(ctx context.Context, msg *model.Message) (uint64, error)

	// Replay returns messages for a trip after the given sequence.
	Replay(ctx context.Context, tripID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error)

	// Tail returns the most recent messages for a trip, oldest first.
	Tail(ctx context.Context, tripID string, limit int) ([]model.Message, error)
}

// Journal stores trip transcripts in JetStream.
type Journal struct {
	client *Client
}

// New creates a journal over the given client.
func New(client *Client) *Journal {
	return &Journal{client: client}
}

// EnsureStream ensures the transcripts stream exists.
func (j *Journal) EnsureStream(ctx context.Context) error {
	js := j.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      180 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Trip refinement chat transcripts",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for one chat turn.
func MessageSubject(tripID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, tripID, role)
}

// Append publishes a chat turn to JetStream.
func (j *Journal) Append(ctx context.Context, msg *model.Message) (uint64, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := j.client.JetStream().Publish(ctx, MessageSubject(msg.TripID, msg.Role), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// Replay retrieves a trip's messages starting after a sequence.
func (j *Journal) Replay(ctx context.Context, tripID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	js := j.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: fmt.Sprintf("%s.%s.msg.>", SubjectPrefix, tripID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []model.Message
	var lastSequence uint64

	for msg := range batch.Messages() {
		var message model.Message
		if err := json.Unmarshal(msg.Data(), &message); err != nil {
			continue
		}

		if meta, err := msg.Metadata(); err == nil {
			message.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		messages = append(messages, message)
	}

	if batch.Error() != nil && !errors.Is(batch.Error(), context.DeadlineExceeded) {
		return nil, 0, false, fmt.Errorf("batch error: %w", batch.Error())
	}

	return messages, lastSequence, len(messages) == limit, nil
}

// Tail drains a trip's subject and keeps a sliding window of the last
// messages. JetStream has no deliver-last-N policy for a filtered
// subject, so the whole transcript is paged through.
func (j *Journal) Tail(ctx context.Context, tripID string, limit int) ([]model.Message, error) {
	js := j.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: fmt.Sprintf("%s.%s.msg.>", SubjectPrefix, tripID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	var window []model.Message
	for {
		batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}

		fetched := 0
		for msg := range batch.Messages() {
			var message model.Message
			if err := json.Unmarshal(msg.Data(), &message); err != nil {
				continue
			}
			if meta, err := msg.Metadata(); err == nil {
				message.Sequence = meta.Sequence.Stream
			}
			window = append(window, message)
			fetched++
		}
		if batch.Error() != nil && !errors.Is(batch.Error(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch error: %w", batch.Error())
		}

		if len(window) > limit {
			window = window[len(window)-limit:]
		}
		if fetched < limit {
			return window, nil
		}
	}
}
