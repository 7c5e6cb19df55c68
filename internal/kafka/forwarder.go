package kafka

import (
	"context"
	"strconv"
	"time"

	"rentcars/internal/events"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Forwarder copies bus events to a Kafka topic keyed by event type.
type Forwarder struct {
	publisher Publisher
	logger    zerolog.Logger
}

func NewForwarder(publisher Publisher, logger *zerolog.Logger) *Forwarder {
	return &Forwarder{
		publisher: publisher,
		logger:    logger.With().Str("component", "kafka_forwarder").Logger(),
	}
}

func (f *Forwarder) Register(bus *events.EventBus) {
	bus.SubscribeAll(f.Handle)
}

func (f *Forwarder) Handle(event *events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := f.publisher.Publish(ctx, []byte(event.Type), event.Payload,
		kafka.Header{Key: "event_id", Value: []byte(strconv.FormatInt(event.ID, 10))},
		kafka.Header{Key: "created_at", Value: []byte(event.CreatedAt.UTC().Format(time.RFC3339Nano))},
	)
	if err != nil {
		f.logger.Error().Err(err).Str("event_type", event.Type).Int64("event_id", event.ID).Msg("failed to forward event")
		return err
	}
	f.logger.Debug().Str("event_type", event.Type).Int64("event_id", event.ID).Msg("event forwarded")
	return nil
}
