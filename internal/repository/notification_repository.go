package repository

import (
	"context"

	"orderflow/internal/domain/notification"
)

type notificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, tx DBTX, n *notification.Notification) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO notifications (id, order_id, event_type, message, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, n.ID, n.OrderID, n.EventType, n.Message, n.CreatedAt)
	return err
}
