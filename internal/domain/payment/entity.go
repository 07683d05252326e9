package payment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Payment is an append-only audit record, one per settlement attempt.
type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Amount    int64
	Status    Status
	CreatedAt time.Time
}

func New(orderID uuid.UUID, amount int64, status Status) *Payment {
	return &Payment{
		ID:        uuid.New(),
		OrderID:   orderID,
		Amount:    amount,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}
