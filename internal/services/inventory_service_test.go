package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/domain/inventory"
	"orderflow/internal/domain/outbox"
	"orderflow/internal/events"
	"orderflow/internal/repository"
)

type inventoryServiceFixture struct {
	service   *InventoryService
	products  *memInventoryRepo
	outbox    *memOutboxRepo
	processed *memProcessedRepo
}

func newInventoryServiceFixture() *inventoryServiceFixture {
	products := newMemInventoryRepo()
	outboxRepo := &memOutboxRepo{}
	processed := newMemProcessedRepo()
	return &inventoryServiceFixture{
		service:   NewInventoryService(&fakeTxManager{}, products, outboxRepo, processed, testLogger()),
		products:  products,
		outbox:    outboxRepo,
		processed: processed,
	}
}

func orderCreatedEvent(items []events.LineItem) (events.Envelope, *events.OrderCreated) {
	orderID := uuid.New()
	payload := &events.OrderCreated{
		OrderID:     orderID,
		CustomerID:  uuid.New(),
		Items:       items,
		TotalAmount: 10000,
		Currency:    "EUR",
	}
	env, _ := events.Wrap(events.EventTypeOrderCreated, payload, orderID)
	return env, payload
}

func (f *inventoryServiceFixture) lastPayload(t *testing.T) (events.Envelope, json.RawMessage) {
	t.Helper()
	require.NotEmpty(t, f.outbox.records)
	rec := f.outbox.records[len(f.outbox.records)-1]
	var env events.Envelope
	require.NoError(t, json.Unmarshal(rec.Payload, &env))
	return env, env.Payload
}

func TestHandleOrderCreated_ReservesAllLines(t *testing.T) {
	f := newInventoryServiceFixture()
	keyboardID := f.products.addProduct("Mechanical Keyboard", 10)
	mouseID := f.products.addProduct("Wireless Mouse", 5)

	env, payload := orderCreatedEvent([]events.LineItem{
		{ProductID: keyboardID, Quantity: 3, UnitPrice: 2000},
		{ProductID: mouseID, Quantity: 2, UnitPrice: 1000},
	})

	require.NoError(t, f.service.HandleOrderCreated(context.Background(), env, payload))

	assert.Equal(t, 7, f.products.products[keyboardID].Stock)
	assert.Equal(t, 3, f.products.products[mouseID].Stock)
	assert.Len(t, f.products.reservations, 2)
	assert.Equal(t, []string{events.EventTypeStockReserved}, f.outbox.eventTypes())

	outEnv, raw := f.lastPayload(t)
	assert.Equal(t, env.EventID, outEnv.CausationID)
	var reserved events.StockReserved
	require.NoError(t, json.Unmarshal(raw, &reserved))
	assert.Equal(t, payload.OrderID, reserved.OrderID)
	assert.Equal(t, payload.TotalAmount, reserved.TotalAmount)
	assert.Equal(t, payload.Currency, reserved.Currency)
}

func TestHandleOrderCreated_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newInventoryServiceFixture()
	keyboardID := f.products.addProduct("Mechanical Keyboard", 10)
	monitorID := f.products.addProduct("27in Monitor", 1)

	env, payload := orderCreatedEvent([]events.LineItem{
		{ProductID: keyboardID, Quantity: 3, UnitPrice: 2000},
		{ProductID: monitorID, Quantity: 2, UnitPrice: 30000},
	})

	require.NoError(t, f.service.HandleOrderCreated(context.Background(), env, payload))

	assert.Equal(t, 10, f.products.products[keyboardID].Stock, "first line must be rolled back")
	assert.Equal(t, 1, f.products.products[monitorID].Stock)
	assert.Empty(t, f.products.reservations)
	assert.Equal(t, []string{events.EventTypeStockRejected}, f.outbox.eventTypes())

	_, raw := f.lastPayload(t)
	var rejected events.StockRejected
	require.NoError(t, json.Unmarshal(raw, &rejected))
	assert.Equal(t, "Insufficient stock for product: 27in Monitor", rejected.Reason)
}

func TestHandleOrderCreated_UnknownProductRejects(t *testing.T) {
	f := newInventoryServiceFixture()
	missingID := uuid.New()

	env, payload := orderCreatedEvent([]events.LineItem{
		{ProductID: missingID, Quantity: 1, UnitPrice: 1000},
	})

	require.NoError(t, f.service.HandleOrderCreated(context.Background(), env, payload))

	assert.Equal(t, []string{events.EventTypeStockRejected}, f.outbox.eventTypes())
	_, raw := f.lastPayload(t)
	var rejected events.StockRejected
	require.NoError(t, json.Unmarshal(raw, &rejected))
	assert.Equal(t, fmt.Sprintf("Product not found: %s", missingID), rejected.Reason)
}

func TestHandleOrderCreated_DuplicateDeliveryDoesNotDoubleReserve(t *testing.T) {
	f := newInventoryServiceFixture()
	keyboardID := f.products.addProduct("Mechanical Keyboard", 10)

	env, payload := orderCreatedEvent([]events.LineItem{
		{ProductID: keyboardID, Quantity: 4, UnitPrice: 2000},
	})

	require.NoError(t, f.service.HandleOrderCreated(context.Background(), env, payload))
	require.NoError(t, f.service.HandleOrderCreated(context.Background(), env, payload))

	assert.Equal(t, 6, f.products.products[keyboardID].Stock)
	assert.Len(t, f.outbox.records, 1)
}

func TestHandleStockReleaseRequested_RestoresStockOnce(t *testing.T) {
	f := newInventoryServiceFixture()
	keyboardID := f.products.addProduct("Mechanical Keyboard", 10)

	createEnv, createPayload := orderCreatedEvent([]events.LineItem{
		{ProductID: keyboardID, Quantity: 4, UnitPrice: 2000},
	})
	require.NoError(t, f.service.HandleOrderCreated(context.Background(), createEnv, createPayload))
	require.Equal(t, 6, f.products.products[keyboardID].Stock)

	releasePayload := &events.StockReleaseRequested{
		OrderID: createPayload.OrderID,
		Items:   createPayload.Items,
	}
	releaseEnv, _ := events.WrapCaused(events.EventTypeStockReleaseRequested,
		releasePayload, createPayload.OrderID, createEnv.EventID)

	require.NoError(t, f.service.HandleStockReleaseRequested(context.Background(), releaseEnv, releasePayload))

	assert.Equal(t, 10, f.products.products[keyboardID].Stock)
	assert.Equal(t, []string{events.EventTypeStockReserved, events.EventTypeStockReleased}, f.outbox.eventTypes())
	for _, res := range f.products.reservations {
		assert.Equal(t, inventory.ReservationReleased, res.Status)
	}

	// Redelivery finds the ledger entry and changes nothing.
	require.NoError(t, f.service.HandleStockReleaseRequested(context.Background(), releaseEnv, releasePayload))
	assert.Equal(t, 10, f.products.products[keyboardID].Stock)
}

func TestHandleStockReleaseRequested_DistinctRetryFindsNoReservations(t *testing.T) {
	f := newInventoryServiceFixture()
	keyboardID := f.products.addProduct("Mechanical Keyboard", 10)

	createEnv, createPayload := orderCreatedEvent([]events.LineItem{
		{ProductID: keyboardID, Quantity: 4, UnitPrice: 2000},
	})
	require.NoError(t, f.service.HandleOrderCreated(context.Background(), createEnv, createPayload))

	release := func() {
		payload := &events.StockReleaseRequested{OrderID: createPayload.OrderID, Items: createPayload.Items}
		env, _ := events.WrapCaused(events.EventTypeStockReleaseRequested, payload, createPayload.OrderID, createEnv.EventID)
		require.NoError(t, f.service.HandleStockReleaseRequested(context.Background(), env, payload))
	}
	release()
	// A second, distinct release event (new event id) must not restore twice:
	// the reservations are already RELEASED.
	release()

	assert.Equal(t, 10, f.products.products[keyboardID].Stock)
}

// rowLockTx stands in for a database transaction that is holding row locks.
type rowLockTx struct {
	held []*sync.Mutex
}

func (t *rowLockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *rowLockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *rowLockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

// rowLockTxManager releases every row lock the transaction acquired when the
// transaction ends, commit and rollback alike.
type rowLockTxManager struct{}

func (rowLockTxManager) WithinTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	tx := &rowLockTx{}
	err := fn(tx)
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	return err
}

// rowLockInventoryRepo emulates SELECT ... FOR UPDATE: the product row stays
// locked until the surrounding transaction ends.
type rowLockInventoryRepo struct {
	*memInventoryRepo
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (r *rowLockInventoryRepo) GetProductForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*inventory.Product, error) {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()
	l.Lock()
	if t, ok := tx.(*rowLockTx); ok {
		t.held = append(t.held, l)
	}
	return r.memInventoryRepo.GetProductForUpdate(ctx, tx, id)
}

type safeOutboxRepo struct {
	mu sync.Mutex
	memOutboxRepo
}

func (r *safeOutboxRepo) Create(ctx context.Context, tx repository.DBTX, rec *outbox.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memOutboxRepo.Create(ctx, tx, rec)
}

type safeProcessedRepo struct {
	mu sync.Mutex
	*memProcessedRepo
}

func (r *safeProcessedRepo) Exists(ctx context.Context, tx repository.DBTX, eventID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memProcessedRepo.Exists(ctx, tx, eventID)
}

func (r *safeProcessedRepo) Create(ctx context.Context, tx repository.DBTX, eventID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memProcessedRepo.Create(ctx, tx, eventID)
}

func TestHandleOrderCreated_ConcurrentOrdersNeverOversell(t *testing.T) {
	inner := newMemInventoryRepo()
	monitorID := inner.addProduct("27in Monitor", 10)
	products := &rowLockInventoryRepo{memInventoryRepo: inner, locks: make(map[uuid.UUID]*sync.Mutex)}
	outboxRepo := &safeOutboxRepo{}
	processed := &safeProcessedRepo{memProcessedRepo: newMemProcessedRepo()}
	svc := NewInventoryService(rowLockTxManager{}, products, outboxRepo, processed, testLogger())

	const orders = 20
	errs := make(chan error, orders)
	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, payload := orderCreatedEvent([]events.LineItem{
				{ProductID: monitorID, Quantity: 3, UnitPrice: 30000},
			})
			errs <- svc.HandleOrderCreated(context.Background(), env, payload)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var reservedUnits int
	for _, res := range inner.reservations {
		reservedUnits += res.Quantity
	}
	// 10 units split into orders of 3: exactly three orders can reserve,
	// the rest reject. Any other split means a lost or doubled decrement.
	assert.Equal(t, 9, reservedUnits)
	assert.Equal(t, 1, inner.products[monitorID].Stock)

	var reservedEvents, rejectedEvents int
	for _, typ := range outboxRepo.eventTypes() {
		switch typ {
		case events.EventTypeStockReserved:
			reservedEvents++
		case events.EventTypeStockRejected:
			rejectedEvents++
		}
	}
	assert.Equal(t, 3, reservedEvents)
	assert.Equal(t, orders-3, rejectedEvents)
}
