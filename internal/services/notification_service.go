package services

import (
	"context"
	"fmt"

	"orderflow/internal/domain/notification"
	"orderflow/internal/events"
	"orderflow/internal/repository"
	"orderflow/pkg/logger"
)

// NotificationService records a customer-facing message for every final
// order outcome. Delivery to a real channel is out of scope; the stored row
// stands in for the send.
type NotificationService struct {
	tx            repository.TxManager
	notifications repository.NotificationRepository
	processed     repository.ProcessedEventRepository
	log           *logger.Logger
}

func NewNotificationService(
	tx repository.TxManager,
	notifications repository.NotificationRepository,
	processed repository.ProcessedEventRepository,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		tx:            tx,
		notifications: notifications,
		processed:     processed,
		log:           log,
	}
}

// HandleOrderConfirmed stores the confirmation notification.
func (s *NotificationService) HandleOrderConfirmed(ctx context.Context, env events.Envelope, p *events.OrderConfirmed) error {
	message := fmt.Sprintf("Your order %s has been confirmed.", p.OrderID)
	return s.record(ctx, env, notification.New(p.OrderID, env.EventType, message))
}

// HandleOrderCancelled stores the cancellation notification with its reason.
func (s *NotificationService) HandleOrderCancelled(ctx context.Context, env events.Envelope, p *events.OrderCancelled) error {
	message := fmt.Sprintf("Your order %s has been cancelled: %s", p.OrderID, p.Reason)
	return s.record(ctx, env, notification.New(p.OrderID, env.EventType, message))
}

func (s *NotificationService) record(ctx context.Context, env events.Envelope, n *notification.Notification) error {
	return s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		alreadyProcessed, err := s.processed.Exists(ctx, tx, env.EventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			s.log.Infof("event %s already processed, skipping", env.EventID)
			return nil
		}
		if err := s.notifications.Create(ctx, tx, n); err != nil {
			return err
		}
		s.log.Infof("notification stored for order %s: %s", n.OrderID, n.EventType)
		return s.processed.Create(ctx, tx, env.EventID)
	})
}
