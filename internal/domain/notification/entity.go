package notification

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	Message   string
	CreatedAt time.Time
}

func New(orderID uuid.UUID, eventType, message string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		OrderID:   orderID,
		EventType: eventType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
