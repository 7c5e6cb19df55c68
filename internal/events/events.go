package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EventReservationCreated = "reservation_created"
	EventCarCreated         = "car_created"
	EventCarUpdated         = "car_updated"
	EventCarDeleted         = "car_deleted"
)

// AllEventTypes lists every event type the services publish.
var AllEventTypes = []string{
	EventReservationCreated,
	EventCarCreated,
	EventCarUpdated,
	EventCarDeleted,
}

// ReservationEventPayload is the reservation snapshot sent to consumers.
type ReservationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	UserEmail     string    `json:"user_email"`
	CarID         string    `json:"car_id"`
	CarBrand      string    `json:"car_brand"`
	CarModel      string    `json:"car_model"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Days          int       `json:"days"`
	Total         int64     `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

type CarEventPayload struct {
	CarID       string `json:"car_id"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	PricePerDay int64  `json:"price_per_day,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         atomic.Int64
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers the handler for every known event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Publish runs the subscribers of the event type synchronously, in subscription order.
// Every handler runs; their errors are joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == 0 {
		event.ID = b.seq.Add(1)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
