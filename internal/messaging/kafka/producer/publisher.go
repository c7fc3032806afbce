package producer

import (
	"context"
	"encoding/json"

	"leave-portal/internal/events"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafkago.Writer used here. The writer is
// expected to carry the topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func publishEvent(ctx context.Context, writer MessageWriter, event events.CacheInvalidationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var key []byte
	if len(event.Keys) > 0 {
		key = []byte(event.Keys[0])
	}

	msg := kafkago.Message{
		Key:   key,
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "request_id", Value: []byte(event.RequestID)},
		},
	}

	return writer.WriteMessages(ctx, msg)
}
