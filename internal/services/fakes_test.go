package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/inventory"
	"orderflow/internal/domain/notification"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/outbox"
	"orderflow/internal/domain/payment"
	"orderflow/internal/repository"
	orderflow_errors "orderflow/pkg/errors"
	"orderflow/pkg/logger"
)

// In-memory doubles for the repository interfaces. The fake transaction
// manager passes a nil tx; rollback is emulated by the tests asserting that
// no partial state remains after a handler error.

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	m.calls++
	return fn(nil)
}

type memOrderRepo struct {
	orders map[uuid.UUID]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *memOrderRepo) Create(ctx context.Context, tx repository.DBTX, o *order.Order) error {
	if _, exists := r.orders[o.ID]; exists {
		return orderflow_errors.ErrAlreadyExists
	}
	clone := *o
	clone.Items = append([]order.Item(nil), o.Items...)
	r.orders[o.ID] = &clone
	return nil
}

func (r *memOrderRepo) get(id uuid.UUID) (*order.Order, error) {
	stored, ok := r.orders[id]
	if !ok {
		return nil, orderflow_errors.ErrNotFound
	}
	clone := *stored
	clone.Items = append([]order.Item(nil), stored.Items...)
	return &clone, nil
}

func (r *memOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(id)
}

func (r *memOrderRepo) GetByIDForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*order.Order, error) {
	return r.get(id)
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, tx repository.DBTX, id uuid.UUID, status order.Status, updatedAt time.Time) error {
	stored, ok := r.orders[id]
	if !ok {
		return orderflow_errors.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = updatedAt
	return nil
}

type memOutboxRepo struct {
	records   []outbox.Record
	createErr error
}

func (r *memOutboxRepo) Create(ctx context.Context, tx repository.DBTX, rec *outbox.Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *memOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]outbox.Record, error) {
	var out []outbox.Record
	for _, rec := range r.records {
		if !rec.Published {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memOutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].Published = true
			return nil
		}
	}
	return orderflow_errors.ErrNotFound
}

func (r *memOutboxRepo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []outbox.Record
	var deleted int64
	for _, rec := range r.records {
		if rec.Published && rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

func (r *memOutboxRepo) eventTypes() []string {
	var types []string
	for _, rec := range r.records {
		types = append(types, rec.EventType)
	}
	return types
}

type memIdempotencyRepo struct {
	records map[string]repository.IdempotencyRecord
}

func newMemIdempotencyRepo() *memIdempotencyRepo {
	return &memIdempotencyRepo{records: make(map[string]repository.IdempotencyRecord)}
}

func (r *memIdempotencyRepo) Get(ctx context.Context, tx repository.DBTX, key string) (*repository.IdempotencyRecord, error) {
	rec, ok := r.records[key]
	if !ok {
		return nil, orderflow_errors.ErrNotFound
	}
	return &rec, nil
}

func (r *memIdempotencyRepo) Create(ctx context.Context, tx repository.DBTX, rec *repository.IdempotencyRecord) error {
	if _, exists := r.records[rec.Key]; exists {
		return orderflow_errors.ErrAlreadyExists
	}
	r.records[rec.Key] = *rec
	return nil
}

type memProcessedRepo struct {
	seen map[uuid.UUID]bool
}

func newMemProcessedRepo() *memProcessedRepo {
	return &memProcessedRepo{seen: make(map[uuid.UUID]bool)}
}

func (r *memProcessedRepo) Exists(ctx context.Context, tx repository.DBTX, eventID uuid.UUID) (bool, error) {
	return r.seen[eventID], nil
}

func (r *memProcessedRepo) Create(ctx context.Context, tx repository.DBTX, eventID uuid.UUID) error {
	if r.seen[eventID] {
		return orderflow_errors.ErrAlreadyExists
	}
	r.seen[eventID] = true
	return nil
}

type memInventoryRepo struct {
	products     map[uuid.UUID]*inventory.Product
	reservations map[uuid.UUID]*inventory.Reservation
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		products:     make(map[uuid.UUID]*inventory.Product),
		reservations: make(map[uuid.UUID]*inventory.Reservation),
	}
}

func (r *memInventoryRepo) addProduct(name string, stock int) uuid.UUID {
	id := uuid.New()
	r.products[id] = &inventory.Product{ID: id, Name: name, Stock: stock}
	return id
}

func (r *memInventoryRepo) GetProductForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*inventory.Product, error) {
	stored, ok := r.products[id]
	if !ok {
		return nil, orderflow_errors.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *memInventoryRepo) GetProduct(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return r.GetProductForUpdate(ctx, nil, id)
}

func (r *memInventoryRepo) UpdateProductStock(ctx context.Context, tx repository.DBTX, id uuid.UUID, stock int) error {
	stored, ok := r.products[id]
	if !ok {
		return orderflow_errors.ErrNotFound
	}
	stored.Stock = stock
	return nil
}

func (r *memInventoryRepo) CreateReservation(ctx context.Context, tx repository.DBTX, res *inventory.Reservation) error {
	clone := *res
	r.reservations[res.ID] = &clone
	return nil
}

func (r *memInventoryRepo) GetReservedByOrder(ctx context.Context, tx repository.DBTX, orderID uuid.UUID) ([]inventory.Reservation, error) {
	var out []inventory.Reservation
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.Status == inventory.ReservationReserved {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memInventoryRepo) MarkReservationReleased(ctx context.Context, tx repository.DBTX, id uuid.UUID) error {
	stored, ok := r.reservations[id]
	if !ok {
		return orderflow_errors.ErrNotFound
	}
	stored.Status = inventory.ReservationReleased
	return nil
}

type memPaymentRepo struct {
	payments []payment.Payment
}

func (r *memPaymentRepo) Create(ctx context.Context, tx repository.DBTX, p *payment.Payment) error {
	r.payments = append(r.payments, *p)
	return nil
}

type memNotificationRepo struct {
	notifications []notification.Notification
	createErr     error
}

func (r *memNotificationRepo) Create(ctx context.Context, tx repository.DBTX, n *notification.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.notifications = append(r.notifications, *n)
	return nil
}

var errBoom = errors.New("boom")
