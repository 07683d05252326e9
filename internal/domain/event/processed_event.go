package event

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEvent is one row of a service's dedup ledger. Its presence means
// the event's side effects are already committed, so a redelivery must apply
// nothing.
type ProcessedEvent struct {
	EventID     uuid.UUID
	ProcessedAt time.Time
}

func NewProcessedEvent(eventID uuid.UUID) *ProcessedEvent {
	return &ProcessedEvent{
		EventID:     eventID,
		ProcessedAt: time.Now().UTC(),
	}
}
