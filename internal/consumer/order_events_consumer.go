package consumer

import (
	"context"

	"orderflow/internal/events"
	"orderflow/internal/services"
	"orderflow/pkg/logger"
)

// OrderEventsConsumer routes the order topic into the inventory service:
// OrderCreated starts a reservation, StockReleaseRequested compensates one.
type OrderEventsConsumer struct {
	inventory *services.InventoryService
	log       *logger.Logger
}

func NewOrderEventsConsumer(inventory *services.InventoryService, log *logger.Logger) *OrderEventsConsumer {
	return &OrderEventsConsumer{inventory: inventory, log: log}
}

func (c *OrderEventsConsumer) Handle(ctx context.Context, key, value []byte) error {
	env, payload, ok, err := events.Decode(value)
	if err != nil {
		c.log.Errorf("order events consumer: undecodable message (key=%s): %v", key, err)
		return err
	}
	if !ok {
		c.log.Infof("order events consumer: skipping unknown event type %s", env.EventType)
		return nil
	}

	switch p := payload.(type) {
	case *events.OrderCreated:
		return c.inventory.HandleOrderCreated(ctx, env, p)
	case *events.StockReleaseRequested:
		return c.inventory.HandleStockReleaseRequested(ctx, env, p)
	default:
		return nil
	}
}
