package repository

import (
	"context"

	"orderflow/internal/domain/payment"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx DBTX, p *payment.Payment) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO payments (id, order_id, amount, status, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, p.ID, p.OrderID, p.Amount, p.Status, p.CreatedAt)
	return err
}
