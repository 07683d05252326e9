package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/order"
	orderflow_errors "orderflow/pkg/errors"
)

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, tx DBTX, o *order.Order) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO orders (id, customer_id, status, total_amount, currency, idempotency_key, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `,
		o.ID,
		o.CustomerID,
		o.Status,
		o.TotalAmount,
		o.Currency,
		o.IdempotencyKey,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return orderflow_errors.ErrAlreadyExists
		}
		return err
	}

	for _, item := range o.Items {
		_, err := execDB.ExecContext(ctx, `
            INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
            VALUES ($1,$2,$3,$4,$5)
        `, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*order.Order, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	return r.get(ctx, execDB, id, true)
}

func (r *orderRepository) get(ctx context.Context, db DBTX, id uuid.UUID, forUpdate bool) (*order.Order, error) {
	query := `
        SELECT id, customer_id, status, total_amount, currency, idempotency_key, created_at, updated_at
        FROM orders
        WHERE id = $1
    `
	if forUpdate {
		query += " FOR UPDATE"
	}

	var o order.Order
	err := db.QueryRowContext(ctx, query, id).Scan(
		&o.ID,
		&o.CustomerID,
		&o.Status,
		&o.TotalAmount,
		&o.Currency,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orderflow_errors.ErrNotFound
		}
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, order_id, product_id, quantity, unit_price
        FROM order_items
        WHERE order_id = $1
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, tx DBTX, id uuid.UUID, status order.Status, updatedAt time.Time) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        UPDATE orders
        SET status = $1, updated_at = $2
        WHERE id = $3
    `, status, updatedAt, id)
	return err
}
