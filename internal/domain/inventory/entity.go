package inventory

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID    uuid.UUID
	Name  string
	Stock int
}

// Reserve decrements stock if enough is available. It never drives stock
// negative; the caller treats a false return as a rejected reservation.
func (p *Product) Reserve(quantity int) bool {
	if p.Stock >= quantity {
		p.Stock -= quantity
		return true
	}
	return false
}

// Release returns previously reserved stock.
func (p *Product) Release(quantity int) {
	p.Stock += quantity
}

// ReservationStatus flips RESERVED -> RELEASED exactly once, on compensation.
type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "RESERVED"
	ReservationReleased ReservationStatus = "RELEASED"
)

type Reservation struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Status    ReservationStatus
	CreatedAt time.Time
}

func NewReservation(orderID, productID uuid.UUID, quantity int) *Reservation {
	return &Reservation{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    ReservationReserved,
		CreatedAt: time.Now().UTC(),
	}
}
