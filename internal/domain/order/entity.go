package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the order saga state. Transitions are driven exclusively by
// saga events; anything outside the table below is ignored, because late
// or duplicate events are normal under at-least-once delivery.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusStockReserved Status = "STOCK_RESERVED"
	StatusConfirmed     Status = "CONFIRMED"
	StatusCancelled     Status = "CANCELLED"
)

// CanTransitionTo reports whether target is a legal next state.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusStockReserved || target == StatusCancelled
	case StatusStockReserved:
		return target == StatusConfirmed || target == StatusCancelled
	default:
		// CONFIRMED and CANCELLED are terminal.
		return false
	}
}

type Order struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	Status         Status
	TotalAmount    int64
	Currency       string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Items          []Item
}

type Item struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice int64
}

func New(customerID uuid.UUID, totalAmount int64, currency, idempotencyKey string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Status:         StatusPending,
		TotalAmount:    totalAmount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (o *Order) AddItem(productID uuid.UUID, quantity int, unitPrice int64) {
	o.Items = append(o.Items, Item{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
}

// UpdateStatus applies a saga transition. It returns false without touching
// the order when the transition is illegal; the caller logs and moves on.
func (o *Order) UpdateStatus(target Status) bool {
	if !o.Status.CanTransitionTo(target) {
		return false
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return true
}
