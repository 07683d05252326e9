package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical wire wrapper for every domain event. The
// correlation id is stable across one saga instance and always equals the
// order id; the causation id points at the event that triggered this one.
type Envelope struct {
	EventID       uuid.UUID       `json:"eventId"`
	EventType     string          `json:"eventType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID uuid.UUID       `json:"correlationId"`
	CausationID   uuid.UUID       `json:"causationId"`
	Version       int             `json:"version"`
	Payload       json.RawMessage `json:"payload"`
}

// Wrap builds an envelope for an event with no distinct cause: the causation
// id defaults to the correlation id. A fresh event id and the current UTC
// timestamp are assigned.
func Wrap(eventType string, payload interface{}, correlationID uuid.UUID) (Envelope, error) {
	return WrapCaused(eventType, payload, correlationID, correlationID)
}

// WrapCaused builds an envelope with an explicit causation id.
func WrapCaused(eventType string, payload interface{}, correlationID, causationID uuid.UUID) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		CausationID:   causationID,
		Version:       1,
		Payload:       raw,
	}, nil
}
