package events

import (
	"context"
	"fmt"

	"examslots/pkg/kafka"
	"examslots/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "slot-reservations"

	// HeaderExaminerProfileID lets consumers filter by examiner without
	// decoding the payload.
	HeaderExaminerProfileID = "examiner-profile-id"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher sends slot events to Kafka keyed by slot key, so every event
// for one slot lands on one partition in order.
type Publisher struct {
	producer messagePublisher
}

func NewPublisher(producer messagePublisher) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) Publish(ctx context.Context, event model.SlotEvent) error {
	msg, err := NewSlotEventMessage(event, kafka.CorrelationIDFromContext(ctx))
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for %s: %w", event.Type, event.SlotKey, err)
	}
	return nil
}

func NewSlotEventMessage(event model.SlotEvent, correlationID string) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(event.SlotKey).
		WithValue(event).
		WithEventType(event.Type).
		WithCorrelationID(correlationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithHeader(HeaderExaminerProfileID, event.ExaminerProfileID).
		WithTimestamp(event.OccurredAt).
		Build()
}
