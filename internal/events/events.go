package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated = "booking_created"
)

// BookingEventPayload is the booking snapshot handed to subscribers.
type BookingEventPayload struct {
	Booking   models.BookingDetails `json:"booking"`
	RequestID string                `json:"request_id,omitempty"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously in subscription order;
// a failing handler is logged and does not stop the others.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish delivers the event and returns how many handlers failed.
func (b *EventBus) Publish(event *Event) int {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	failed := 0
	for i, handler := range handlers {
		if err := handler(event); err != nil {
			failed++
			b.logger.Error().Err(err).Str("event_type", event.Type).Int("handler", i).Msg("event handler failed")
		}
	}
	return failed
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
