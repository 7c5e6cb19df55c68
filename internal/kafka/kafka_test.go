package kafka

import (
	"context"
	"errors"
	"io"
	"testing"

	"rentcars/internal/events"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestForwarder_ForwardsEveryEventType(t *testing.T) {
	writer := &fakeWriter{}
	logger := zerolog.New(io.Discard)
	producer := NewProducerWithWriter(writer)
	bus := events.NewEventBus()
	NewForwarder(producer, &logger).Register(bus)

	require.NoError(t, bus.PublishJSON(events.EventReservationCreated, events.ReservationEventPayload{ReservationID: "r1"}))
	require.NoError(t, bus.PublishJSON(events.EventCarDeleted, events.CarEventPayload{CarID: "c1"}))

	require.Len(t, writer.messages, 2)
	assert.Equal(t, events.EventReservationCreated, string(writer.messages[0].Key))
	assert.JSONEq(t, `{"reservation_id":"r1","user_id":"","user_email":"","car_id":"","car_brand":"","car_model":"",
		"start_date":"0001-01-01T00:00:00Z","end_date":"0001-01-01T00:00:00Z","days":0,"total":0,
		"created_at":"0001-01-01T00:00:00Z"}`, string(writer.messages[0].Value))
	assert.Equal(t, events.EventCarDeleted, string(writer.messages[1].Key))
	assert.Equal(t, "event_id", writer.messages[1].Headers[0].Key)

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestForwarder_PublishError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	logger := zerolog.New(io.Discard)
	f := NewForwarder(NewProducerWithWriter(writer), &logger)

	err := f.Handle(&events.Event{ID: 1, Type: events.EventCarCreated, Payload: []byte(`{}`)})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaProducer(t *testing.T) {
	p := NewKafkaProducer([]string{"localhost:9092"}, "rentcars.events")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "rentcars.events", w.Topic)
	assert.NoError(t, p.Close())
}
