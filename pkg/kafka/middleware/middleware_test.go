package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"examslots/pkg/kafka"
	"examslots/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	m := NewMetrics()
	produce := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()
	msg := kafka.Message{Key: "exam123#2025-06-01T14:00:00Z"}

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("boom") }

	assert.NoError(t, produce(context.Background(), msg, ok))
	assert.NoError(t, produce(context.Background(), msg, ok))
	assert.Error(t, produce(context.Background(), msg, fail))
	assert.Error(t, consume(context.Background(), msg, fail))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.MessagesPublished)
	assert.Equal(t, int64(1), snap.MessagesPublishedFailed)
	assert.Equal(t, int64(0), snap.MessagesConsumed)
	assert.Equal(t, int64(1), snap.MessagesConsumedFailed)
}

func TestLoggingMiddleware_PassesErrorsThrough(t *testing.T) {
	want := errors.New("broker down")
	produce := LoggingProducerMiddleware(logger.Discard())
	consume := LoggingConsumerMiddleware(logger.Discard())

	err := produce(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return want })
	assert.ErrorIs(t, err, want)

	err = consume(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return nil })
	assert.NoError(t, err)
}
