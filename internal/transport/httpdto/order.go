package httpdto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/order"
	orderflow_errors "orderflow/pkg/errors"
)

type CreateOrderRequest struct {
	CustomerID uuid.UUID          `json:"customerId"`
	Items      []OrderItemRequest `json:"items"`
	Currency   string             `json:"currency"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unitPrice"`
}

// Normalize applies defaults so that two equivalent requests hash
// identically for the idempotency cache.
func (r *CreateOrderRequest) Normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = "EUR"
	}
}

// Validate checks the request after normalization.
func (r *CreateOrderRequest) Validate() error {
	if r.CustomerID == uuid.Nil {
		return orderflow_errors.ErrInvalidInput
	}
	if len(r.Items) == 0 {
		return orderflow_errors.ErrInvalidInput
	}
	if len(r.Currency) != 3 {
		return orderflow_errors.ErrInvalidInput
	}
	for _, item := range r.Items {
		if item.ProductID == uuid.Nil || item.Quantity < 1 || item.UnitPrice <= 0 {
			return orderflow_errors.ErrInvalidInput
		}
	}
	return nil
}

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customerId"`
	Status      string              `json:"status"`
	TotalAmount int64               `json:"totalAmount"`
	Currency    string              `json:"currency"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unitPrice"`
}

func FromOrder(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
