package events

import "github.com/google/uuid"

// Event type tags as they appear on the wire.
const (
	EventTypeOrderCreated          = "OrderCreated"
	EventTypeOrderConfirmed        = "OrderConfirmed"
	EventTypeOrderCancelled        = "OrderCancelled"
	EventTypeStockReleaseRequested = "StockReleaseRequested"

	EventTypeStockReserved = "StockReserved"
	EventTypeStockRejected = "StockRejected"
	EventTypeStockReleased = "StockReleased"

	EventTypePaymentSucceeded = "PaymentSucceeded"
	EventTypePaymentFailed    = "PaymentFailed"
)

// Broker topics. Messages are keyed by aggregate id so that all events of
// one order land on the same partition.
const (
	TopicOrderEvents     = "order-events"
	TopicInventoryEvents = "inventory-events"
	TopicPaymentEvents   = "payment-events"
)

// Aggregate type constants used on outbox records.
const (
	AggregateTypeOrder     = "Order"
	AggregateTypeInventory = "Inventory"
	AggregateTypePayment   = "Payment"
)

// LineItem is the shared order line shape embedded in several payloads.
// Prices and amounts are integer minor currency units.
type LineItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unitPrice"`
}

type OrderCreated struct {
	OrderID     uuid.UUID  `json:"orderId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
	Currency    string     `json:"currency"`
}

type OrderConfirmed struct {
	OrderID uuid.UUID `json:"orderId"`
}

type OrderCancelled struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

type StockReleaseRequested struct {
	OrderID uuid.UUID  `json:"orderId"`
	Items   []LineItem `json:"items"`
}

type StockReserved struct {
	OrderID     uuid.UUID  `json:"orderId"`
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
	Currency    string     `json:"currency"`
}

type StockRejected struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

type StockReleased struct {
	OrderID uuid.UUID `json:"orderId"`
}

type PaymentSucceeded struct {
	OrderID   uuid.UUID `json:"orderId"`
	PaymentID uuid.UUID `json:"paymentId"`
	Amount    int64     `json:"amount"`
}

type PaymentFailed struct {
	OrderID uuid.UUID `json:"orderId"`
	Amount  int64     `json:"amount"`
	Reason  string    `json:"reason"`
}
