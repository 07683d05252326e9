package consumer

import (
	"context"

	"orderflow/internal/events"
	"orderflow/internal/services"
	"orderflow/pkg/logger"
)

// InventoryEventsConsumer triggers payment on StockReserved. Rejections and
// releases on the same topic are not payment input and are dropped.
type InventoryEventsConsumer struct {
	payments *services.PaymentService
	log      *logger.Logger
}

func NewInventoryEventsConsumer(payments *services.PaymentService, log *logger.Logger) *InventoryEventsConsumer {
	return &InventoryEventsConsumer{payments: payments, log: log}
}

func (c *InventoryEventsConsumer) Handle(ctx context.Context, key, value []byte) error {
	env, payload, ok, err := events.Decode(value)
	if err != nil {
		c.log.Errorf("inventory events consumer: undecodable message (key=%s): %v", key, err)
		return err
	}
	if !ok {
		c.log.Infof("inventory events consumer: skipping unknown event type %s", env.EventType)
		return nil
	}

	if p, isReserved := payload.(*events.StockReserved); isReserved {
		return c.payments.HandleStockReserved(ctx, env, p)
	}
	return nil
}
