package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// ActorRef names whoever caused a settlement event. System-driven events
// (webhooks, reconciliation) carry a role and no user.
type ActorRef struct {
	UserID uuid.UUID       `json:"userId"`
	Role   enums.ActorRole `json:"role,omitempty"`
}

// NewActorRef returns nil when neither id nor role is known.
func NewActorRef(userID uuid.UUID, role enums.ActorRole) *ActorRef {
	if userID == uuid.Nil && role == "" {
		return nil
	}
	return &ActorRef{UserID: userID, Role: role}
}

// IsSystem reports whether the event was produced without a human actor.
func (a *ActorRef) IsSystem() bool {
	return a != nil && a.Role == enums.ActorRoleSystem
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// as the message body. Consumers decode Data using EventType.
type PayloadEnvelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType,omitempty"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType,omitempty"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	OccurredAt    time.Time                 `json:"occurredAt"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}
