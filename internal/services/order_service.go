package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/order"
	"orderflow/internal/events"
	"orderflow/internal/repository"
	"orderflow/internal/transport/httpdto"
	orderflow_errors "orderflow/pkg/errors"
	"orderflow/pkg/logger"
)

// OrderService owns the order aggregate: API-facing creation with request
// idempotency, reads, and the saga transitions driven by inventory and
// payment events.
type OrderService struct {
	tx          repository.TxManager
	orders      repository.OrderRepository
	outbox      repository.OutboxRepository
	idempotency repository.IdempotencyRepository
	processed   repository.ProcessedEventRepository
	log         *logger.Logger
}

func NewOrderService(
	tx repository.TxManager,
	orders repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	idempotency repository.IdempotencyRepository,
	processed repository.ProcessedEventRepository,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		tx:          tx,
		orders:      orders,
		outbox:      outboxRepo,
		idempotency: idempotency,
		processed:   processed,
		log:         log,
	}
}

// CreateOrderResult carries the response plus whether it was replayed from
// the idempotency cache (the handler maps that to 200 instead of 201).
type CreateOrderResult struct {
	Response  httpdto.OrderResponse
	FromCache bool
}

// CreateOrder creates the order, its items, the OrderCreated outbox record
// and the idempotency cache entry in a single transaction. Replays with the
// same key and body return the cached response; a different body under the
// same key is a conflict.
func (s *OrderService) CreateOrder(ctx context.Context, req httpdto.CreateOrderRequest, idempotencyKey string) (*CreateOrderResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestHash, err := hashRequest(req)
	if err != nil {
		return nil, err
	}

	var result *CreateOrderResult
	err = s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		existing, err := s.idempotency.Get(ctx, tx, idempotencyKey)
		if err != nil && !errors.Is(err, orderflow_errors.ErrNotFound) {
			return err
		}
		if existing != nil {
			if existing.RequestHash != requestHash {
				return fmt.Errorf("%w: idempotency key already used with different request payload",
					orderflow_errors.ErrConflict)
			}
			var cached httpdto.OrderResponse
			if err := json.Unmarshal(existing.ResponseBody, &cached); err != nil {
				return fmt.Errorf("deserialize cached response: %w", err)
			}
			result = &CreateOrderResult{Response: cached, FromCache: true}
			return nil
		}

		var totalAmount int64
		for _, item := range req.Items {
			totalAmount += item.UnitPrice * int64(item.Quantity)
		}

		o := order.New(req.CustomerID, totalAmount, req.Currency, idempotencyKey)
		lineItems := make([]events.LineItem, 0, len(req.Items))
		for _, item := range req.Items {
			o.AddItem(item.ProductID, item.Quantity, item.UnitPrice)
			lineItems = append(lineItems, events.LineItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		if err := s.orders.Create(ctx, tx, o); err != nil {
			return err
		}

		env, err := events.Wrap(events.EventTypeOrderCreated, events.OrderCreated{
			OrderID:     o.ID,
			CustomerID:  o.CustomerID,
			Items:       lineItems,
			TotalAmount: totalAmount,
			Currency:    o.Currency,
		}, o.ID)
		if err != nil {
			return err
		}
		if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeOrder, o.ID, env); err != nil {
			return err
		}

		response := httpdto.FromOrder(o)
		responseBody, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("serialize response for idempotency cache: %w", err)
		}
		if err := s.idempotency.Create(ctx, tx, &repository.IdempotencyRecord{
			Key:          idempotencyKey,
			OrderID:      o.ID,
			RequestHash:  requestHash,
			ResponseBody: responseBody,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}

		result = &CreateOrderResult{Response: response, FromCache: false}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.FromCache {
		s.log.Infof("order created: id=%s status=%s", result.Response.ID, result.Response.Status)
	}
	return result, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*httpdto.OrderResponse, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := httpdto.FromOrder(o)
	return &response, nil
}

// HandleSagaEvent applies one inventory or payment event to the order saga.
// The dedup check, the status change, any follow-up outbox events and the
// ledger insert share one transaction.
func (s *OrderService) HandleSagaEvent(ctx context.Context, env events.Envelope, payload interface{}) error {
	return s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		alreadyProcessed, err := s.processed.Exists(ctx, tx, env.EventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			s.log.Infof("event %s already processed, skipping", env.EventID)
			return nil
		}

		switch p := payload.(type) {
		case *events.StockReserved:
			if err := s.applyStatus(ctx, tx, p.OrderID, order.StatusStockReserved); err != nil {
				return err
			}
		case *events.StockRejected:
			reason := p.Reason
			if reason == "" {
				reason = "Stock unavailable"
			}
			// Nothing was reserved, so cancellation needs no compensation.
			if err := s.cancel(ctx, tx, env, p.OrderID, reason, false); err != nil {
				return err
			}
		case *events.PaymentSucceeded:
			if err := s.confirm(ctx, tx, env, p.OrderID); err != nil {
				return err
			}
		case *events.PaymentFailed:
			reason := p.Reason
			if reason == "" {
				reason = "Payment failed"
			}
			if err := s.cancel(ctx, tx, env, p.OrderID, reason, true); err != nil {
				return err
			}
		default:
			s.log.Infof("ignoring event type %s", env.EventType)
		}

		return s.processed.Create(ctx, tx, env.EventID)
	})
}

func (s *OrderService) applyStatus(ctx context.Context, tx repository.DBTX, orderID uuid.UUID, target order.Status) error {
	o, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	oldStatus := o.Status
	if !o.UpdateStatus(target) {
		s.log.Warnf("order %s ignoring invalid transition: %s -> %s", orderID, oldStatus, target)
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, tx, orderID, o.Status, o.UpdatedAt); err != nil {
		return err
	}
	s.log.Infof("order %s status changed: %s -> %s", orderID, oldStatus, o.Status)
	return nil
}

func (s *OrderService) confirm(ctx context.Context, tx repository.DBTX, cause events.Envelope, orderID uuid.UUID) error {
	o, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !o.UpdateStatus(order.StatusConfirmed) {
		s.log.Warnf("order %s cannot be confirmed from status %s", orderID, o.Status)
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, tx, orderID, o.Status, o.UpdatedAt); err != nil {
		return err
	}

	env, err := events.WrapCaused(events.EventTypeOrderConfirmed,
		events.OrderConfirmed{OrderID: orderID}, orderID, cause.EventID)
	if err != nil {
		return err
	}
	if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeOrder, orderID, env); err != nil {
		return err
	}

	s.log.Infof("order %s confirmed", orderID)
	return nil
}

func (s *OrderService) cancel(ctx context.Context, tx repository.DBTX, cause events.Envelope, orderID uuid.UUID, reason string, releaseStock bool) error {
	o, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !o.UpdateStatus(order.StatusCancelled) {
		s.log.Warnf("order %s cannot be cancelled from status %s", orderID, o.Status)
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, tx, orderID, o.Status, o.UpdatedAt); err != nil {
		return err
	}

	env, err := events.WrapCaused(events.EventTypeOrderCancelled,
		events.OrderCancelled{OrderID: orderID, Reason: reason}, orderID, cause.EventID)
	if err != nil {
		return err
	}
	if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeOrder, orderID, env); err != nil {
		return err
	}

	if releaseStock {
		lineItems := make([]events.LineItem, 0, len(o.Items))
		for _, item := range o.Items {
			lineItems = append(lineItems, events.LineItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		releaseEnv, err := events.WrapCaused(events.EventTypeStockReleaseRequested,
			events.StockReleaseRequested{OrderID: orderID, Items: lineItems}, orderID, cause.EventID)
		if err != nil {
			return err
		}
		if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeOrder, orderID, releaseEnv); err != nil {
			return err
		}
	}

	s.log.Infof("order %s cancelled: %s", orderID, reason)
	return nil
}

// hashRequest produces a stable fingerprint of the normalized request body
// for idempotency-key comparison.
func hashRequest(req httpdto.CreateOrderRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("hash request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
