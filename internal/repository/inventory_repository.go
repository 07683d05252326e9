package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"orderflow/internal/domain/inventory"
	orderflow_errors "orderflow/pkg/errors"
)

type inventoryRepository struct {
	db DBTX
}

func NewInventoryRepository(db DBTX) InventoryRepository {
	return &inventoryRepository{db: db}
}

// GetProductForUpdate locks the product row until the surrounding
// transaction commits. Locks are acquired in line-item order, never across
// a broker call.
func (r *inventoryRepository) GetProductForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*inventory.Product, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	var p inventory.Product
	err := execDB.QueryRowContext(ctx, `
        SELECT id, name, stock
        FROM products
        WHERE id = $1
        FOR UPDATE
    `, id).Scan(&p.ID, &p.Name, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orderflow_errors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *inventoryRepository) GetProduct(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	var p inventory.Product
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, stock
        FROM products
        WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orderflow_errors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *inventoryRepository) UpdateProductStock(ctx context.Context, tx DBTX, id uuid.UUID, stock int) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        UPDATE products
        SET stock = $1
        WHERE id = $2
    `, stock, id)
	return err
}

func (r *inventoryRepository) CreateReservation(ctx context.Context, tx DBTX, res *inventory.Reservation) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO reservations (id, order_id, product_id, quantity, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, res.ID, res.OrderID, res.ProductID, res.Quantity, res.Status, res.CreatedAt)
	return err
}

func (r *inventoryRepository) GetReservedByOrder(ctx context.Context, tx DBTX, orderID uuid.UUID) ([]inventory.Reservation, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	rows, err := execDB.QueryContext(ctx, `
        SELECT id, order_id, product_id, quantity, status, created_at
        FROM reservations
        WHERE order_id = $1 AND status = $2
    `, orderID, inventory.ReservationReserved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []inventory.Reservation
	for rows.Next() {
		var res inventory.Reservation
		if err := rows.Scan(&res.ID, &res.OrderID, &res.ProductID, &res.Quantity, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *inventoryRepository) MarkReservationReleased(ctx context.Context, tx DBTX, id uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        UPDATE reservations
        SET status = $1
        WHERE id = $2 AND status = $3
    `, inventory.ReservationReleased, id, inventory.ReservationReserved)
	return err
}
