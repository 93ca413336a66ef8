package events

import (
	"context"
	"time"

	"atelier/pkg/kafka"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

const (
	TypeSlotCreated   = "slot.created"
	TypeSlotBooked    = "slot.booked"
	TypeSlotCancelled = "slot.cancelled"

	SchemaVersion = "1"
)

// SlotEvent is the payload published for every slot state change.
type SlotEvent struct {
	Type        string           `json:"type"`
	SlotID      string           `json:"slot_id"`
	ProviderUID string           `json:"provider_uid"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	EndsAt      time.Time        `json:"ends_at"`
	Status      model.SlotStatus `json:"status"`
	ActorUID    string           `json:"actor_uid,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

func NewSlotEvent(eventType string, slot *model.BookingSlot, actorUID string) SlotEvent {
	return SlotEvent{
		Type:        eventType,
		SlotID:      slot.ID,
		ProviderUID: slot.ProviderUID,
		ScheduledAt: slot.ScheduledAt.UTC(),
		EndsAt:      slot.EndsAt().UTC(),
		Status:      slot.Status,
		ActorUID:    actorUID,
		OccurredAt:  time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event SlotEvent) error
	Close() error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher keys messages by provider uid so events of one calendar stay
// ordered.
type KafkaPublisher struct {
	producer messagePublisher
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event SlotEvent) error {
	correlationID := RequestIDFromContext(ctx)
	msg, err := kafka.NewMessage().
		WithKey(event.ProviderUID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(correlationID).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return err
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Slot event not delivered",
			"event_type", event.Type,
			"slot_id", event.SlotID,
			"provider_uid", event.ProviderUID,
			"correlation_id", correlationID,
			"transient", kafka.IsTransient(err),
			"error", err,
		)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event SlotEvent) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

type requestIDKey struct{}

// WithRequestID lets the HTTP layer carry its request id into event headers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
