package services

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/domain/inventory"
	"orderflow/internal/events"
	"orderflow/internal/repository"
	orderflow_errors "orderflow/pkg/errors"
	"orderflow/pkg/logger"
)

// InventoryService reacts to order events: it reserves stock on OrderCreated
// and releases it on StockReleaseRequested. Reservation of a multi-item order
// is all-or-nothing.
type InventoryService struct {
	tx        repository.TxManager
	products  repository.InventoryRepository
	outbox    repository.OutboxRepository
	processed repository.ProcessedEventRepository
	log       *logger.Logger
}

func NewInventoryService(
	tx repository.TxManager,
	products repository.InventoryRepository,
	outboxRepo repository.OutboxRepository,
	processed repository.ProcessedEventRepository,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		tx:        tx,
		products:  products,
		outbox:    outboxRepo,
		processed: processed,
		log:       log,
	}
}

// HandleOrderCreated attempts to reserve every line of the order. Product
// rows are locked one at a time; on the first missing product or stock
// shortfall the already decremented rows are restored inside the same
// transaction and a StockRejected event is emitted instead.
func (s *InventoryService) HandleOrderCreated(ctx context.Context, env events.Envelope, p *events.OrderCreated) error {
	return s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		alreadyProcessed, err := s.processed.Exists(ctx, tx, env.EventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			s.log.Infof("event %s already processed, skipping", env.EventID)
			return nil
		}

		type decrement struct {
			product  *inventory.Product
			quantity int
		}
		var applied []decrement
		rejectReason := ""

		for _, item := range p.Items {
			product, err := s.products.GetProductForUpdate(ctx, tx, item.ProductID)
			if err != nil {
				if errors.Is(err, orderflow_errors.ErrNotFound) {
					rejectReason = fmt.Sprintf("Product not found: %s", item.ProductID)
					break
				}
				return err
			}
			if !product.Reserve(item.Quantity) {
				rejectReason = fmt.Sprintf("Insufficient stock for product: %s", product.Name)
				break
			}
			if err := s.products.UpdateProductStock(ctx, tx, product.ID, product.Stock); err != nil {
				return err
			}
			applied = append(applied, decrement{product: product, quantity: item.Quantity})
		}

		if rejectReason != "" {
			// Undo the partial reservation before rejecting.
			for _, d := range applied {
				d.product.Release(d.quantity)
				if err := s.products.UpdateProductStock(ctx, tx, d.product.ID, d.product.Stock); err != nil {
					return err
				}
			}
			rejected, err := events.WrapCaused(events.EventTypeStockRejected,
				events.StockRejected{OrderID: p.OrderID, Reason: rejectReason},
				env.CorrelationID, env.EventID)
			if err != nil {
				return err
			}
			if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeInventory, p.OrderID, rejected); err != nil {
				return err
			}
			s.log.Infof("order %s stock rejected: %s", p.OrderID, rejectReason)
			return s.processed.Create(ctx, tx, env.EventID)
		}

		for _, item := range p.Items {
			if err := s.products.CreateReservation(ctx, tx, inventory.NewReservation(p.OrderID, item.ProductID, item.Quantity)); err != nil {
				return err
			}
		}

		reserved, err := events.WrapCaused(events.EventTypeStockReserved,
			events.StockReserved{
				OrderID:     p.OrderID,
				Items:       p.Items,
				TotalAmount: p.TotalAmount,
				Currency:    p.Currency,
			},
			env.CorrelationID, env.EventID)
		if err != nil {
			return err
		}
		if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeInventory, p.OrderID, reserved); err != nil {
			return err
		}

		s.log.Infof("order %s stock reserved (%d items)", p.OrderID, len(p.Items))
		return s.processed.Create(ctx, tx, env.EventID)
	})
}

// HandleStockReleaseRequested compensates a failed payment by returning the
// order's still-reserved quantities to the products. Reservations already
// marked RELEASED are skipped, so redeliveries do not inflate stock.
func (s *InventoryService) HandleStockReleaseRequested(ctx context.Context, env events.Envelope, p *events.StockReleaseRequested) error {
	return s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		alreadyProcessed, err := s.processed.Exists(ctx, tx, env.EventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			s.log.Infof("event %s already processed, skipping", env.EventID)
			return nil
		}

		reservations, err := s.products.GetReservedByOrder(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}

		for _, r := range reservations {
			product, err := s.products.GetProductForUpdate(ctx, tx, r.ProductID)
			if err != nil {
				return err
			}
			product.Release(r.Quantity)
			if err := s.products.UpdateProductStock(ctx, tx, product.ID, product.Stock); err != nil {
				return err
			}
			if err := s.products.MarkReservationReleased(ctx, tx, r.ID); err != nil {
				return err
			}
		}

		released, err := events.WrapCaused(events.EventTypeStockReleased,
			events.StockReleased{OrderID: p.OrderID},
			env.CorrelationID, env.EventID)
		if err != nil {
			return err
		}
		if err := saveOutboxEvent(ctx, s.outbox, tx, events.AggregateTypeInventory, p.OrderID, released); err != nil {
			return err
		}

		s.log.Infof("order %s stock released (%d reservations)", p.OrderID, len(reservations))
		return s.processed.Create(ctx, tx, env.EventID)
	})
}
