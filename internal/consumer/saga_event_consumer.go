package consumer

import (
	"context"

	"orderflow/internal/events"
	"orderflow/internal/services"
	"orderflow/pkg/logger"
)

// SagaEventConsumer feeds inventory and payment events into the order
// service. Unknown event types are acknowledged and dropped; handler errors
// propagate so the consumer retries the message in place.
type SagaEventConsumer struct {
	orders *services.OrderService
	log    *logger.Logger
}

func NewSagaEventConsumer(orders *services.OrderService, log *logger.Logger) *SagaEventConsumer {
	return &SagaEventConsumer{orders: orders, log: log}
}

func (c *SagaEventConsumer) Handle(ctx context.Context, key, value []byte) error {
	env, payload, ok, err := events.Decode(value)
	if err != nil {
		// Propagate so the message is retried rather than committed
		// past. Dead-letter routing lives at the broker, not here.
		c.log.Errorf("saga consumer: undecodable message (key=%s): %v", key, err)
		return err
	}
	if !ok {
		c.log.Infof("saga consumer: skipping unknown event type %s", env.EventType)
		return nil
	}

	switch payload.(type) {
	case *events.StockReserved, *events.StockRejected, *events.PaymentSucceeded, *events.PaymentFailed:
		return c.orders.HandleSagaEvent(ctx, env, payload)
	default:
		// Events the order service itself produced come back on shared
		// topics; they are not saga input.
		return nil
	}
}
