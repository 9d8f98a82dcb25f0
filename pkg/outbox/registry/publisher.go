// Package registry decodes outbox rows into typed events and says where each
// one is published.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/db/models"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox"
	"github.com/angelmondragon/haulmart-backend/pkg/outbox/payloads"
)

// payloadTypes returns a fresh decode target for each event's data.
var payloadTypes = map[enums.OutboxEventType]func() any{
	enums.EventOrderCreated:       func() any { return &payloads.OrderCreatedEvent{} },
	enums.EventOrderStatusChanged: func() any { return &payloads.OrderStatusChangedEvent{} },
	enums.EventOrderCanceled:      func() any { return &payloads.OrderCanceledEvent{} },
	enums.EventOrderPaid:          func() any { return &payloads.OrderPaidEvent{} },
	enums.EventPaymentFailed:      func() any { return &payloads.PaymentFailedEvent{} },
	enums.EventRefundRequested:    func() any { return &payloads.RefundEvent{} },
	enums.EventRefundProcessed:    func() any { return &payloads.RefundEvent{} },
	enums.EventPayoutRequested:    func() any { return &payloads.PayoutEvent{} },
	enums.EventPayoutProcessed:    func() any { return &payloads.PayoutEvent{} },
	enums.EventPayoutRejected:     func() any { return &payloads.PayoutEvent{} },
	enums.EventLowStockDetected:   func() any { return &payloads.LowStockDetectedEvent{} },
}

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every
// attempt, so the publisher dead-letters it at once.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// NewEventRegistry routes every event to the domain topic. Consumers filter
// on the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	types := enums.OutboxEventTypes()
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(types))}
	for _, eventType := range types {
		factory, ok := payloadTypes[eventType]
		if !ok {
			return nil, fmt.Errorf("no payload type registered for %s", eventType)
		}
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  eventType.Aggregate(),
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
