package consumer

import (
	"context"

	"orderflow/internal/events"
	"orderflow/internal/services"
	"orderflow/pkg/logger"
)

// OrderFinalEventsConsumer watches the order topic for final outcomes and
// hands them to the notification service.
type OrderFinalEventsConsumer struct {
	notifications *services.NotificationService
	log           *logger.Logger
}

func NewOrderFinalEventsConsumer(notifications *services.NotificationService, log *logger.Logger) *OrderFinalEventsConsumer {
	return &OrderFinalEventsConsumer{notifications: notifications, log: log}
}

func (c *OrderFinalEventsConsumer) Handle(ctx context.Context, key, value []byte) error {
	env, payload, ok, err := events.Decode(value)
	if err != nil {
		c.log.Errorf("notification consumer: undecodable message (key=%s): %v", key, err)
		return err
	}
	if !ok {
		c.log.Infof("notification consumer: skipping unknown event type %s", env.EventType)
		return nil
	}

	switch p := payload.(type) {
	case *events.OrderConfirmed:
		return c.notifications.HandleOrderConfirmed(ctx, env, p)
	case *events.OrderCancelled:
		return c.notifications.HandleOrderCancelled(ctx, env, p)
	default:
		return nil
	}
}
