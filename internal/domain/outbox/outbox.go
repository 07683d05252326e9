package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Record is one event waiting in a service's transactional outbox. It is
// inserted in the same database transaction as the state change it
// describes; only the relay flips published, and only the retention sweep
// ever deletes rows.
type Record struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	Published     bool
}

func NewRecord(aggregateType string, aggregateID uuid.UUID, eventType string, payload []byte) *Record {
	return &Record{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		Published:     false,
	}
}
