package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/inventory"
	"orderflow/internal/domain/notification"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/outbox"
	"orderflow/internal/domain/payment"
)

// Methods that take a tx run inside the caller's transaction when tx is
// non-nil and against the repository's own connection otherwise.

type OrderRepository interface {
	Create(ctx context.Context, tx DBTX, o *order.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	// GetByIDForUpdate locks the order row for the duration of the
	// transaction so concurrent saga events serialize per order.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*order.Order, error)
	UpdateStatus(ctx context.Context, tx DBTX, id uuid.UUID, status order.Status, updatedAt time.Time) error
}

type IdempotencyRecord struct {
	Key          string
	OrderID      uuid.UUID
	RequestHash  string
	ResponseBody []byte
	CreatedAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, tx DBTX, key string) (*IdempotencyRecord, error)
	Create(ctx context.Context, tx DBTX, rec *IdempotencyRecord) error
}

type InventoryRepository interface {
	// GetProductForUpdate takes the exclusive per-product row lock that
	// serializes concurrent reservations for the same product.
	GetProductForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*inventory.Product, error)
	UpdateProductStock(ctx context.Context, tx DBTX, id uuid.UUID, stock int) error
	GetProduct(ctx context.Context, id uuid.UUID) (*inventory.Product, error)
	CreateReservation(ctx context.Context, tx DBTX, r *inventory.Reservation) error
	GetReservedByOrder(ctx context.Context, tx DBTX, orderID uuid.UUID) ([]inventory.Reservation, error)
	MarkReservationReleased(ctx context.Context, tx DBTX, id uuid.UUID) error
}

type PaymentRepository interface {
	Create(ctx context.Context, tx DBTX, p *payment.Payment) error
}

type NotificationRepository interface {
	Create(ctx context.Context, tx DBTX, n *notification.Notification) error
}

type OutboxRepository interface {
	Create(ctx context.Context, tx DBTX, rec *outbox.Record) error
	GetUnpublished(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ProcessedEventRepository interface {
	Exists(ctx context.Context, tx DBTX, eventID uuid.UUID) (bool, error)
	Create(ctx context.Context, tx DBTX, eventID uuid.UUID) error
}
