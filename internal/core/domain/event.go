package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRoundStatusChange EventType = "ROUND_STATUS_CHANGE"
	EventTableChange       EventType = "TABLE_CHANGE"
)

type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

const (
	TopicRounds = "rounds"

	EntityRounds                = "rounds"
	EntityVotes                 = "votes"
	EntityInteractions          = "interactions"
	EntityDeliberationDecisions = "deliberation_decisions"
)

// TableTopic is the topic carrying change hints for one entity type.
func TableTopic(entity string) string {
	return "table:" + entity
}

// AllTopics lists every topic the service publishes on.
func AllTopics() []string {
	return []string{
		TopicRounds,
		TableTopic(EntityRounds),
		TableTopic(EntityVotes),
		TableTopic(EntityInteractions),
		TableTopic(EntityDeliberationDecisions),
	}
}

// Event is a change hint. Receivers re-read state instead of trusting it.
type Event struct {
	Type       EventType  `json:"type"`
	RoundID    *uuid.UUID `json:"round_id,omitempty"`
	Entity     string     `json:"entity,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	Operation  Operation  `json:"operation,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func RoundStatusChanged(roundID uuid.UUID, at time.Time) Event {
	return Event{Type: EventRoundStatusChange, RoundID: &roundID, OccurredAt: at}
}

func TableChanged(entity, entityID string, op Operation, roundID uuid.UUID, at time.Time) Event {
	return Event{
		Type:       EventTableChange,
		RoundID:    &roundID,
		Entity:     entity,
		EntityID:   entityID,
		Operation:  op,
		OccurredAt: at,
	}
}
