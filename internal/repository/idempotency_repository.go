package repository

import (
	"context"
	"database/sql"
	"errors"

	orderflow_errors "orderflow/pkg/errors"
)

type idempotencyRepository struct {
	db DBTX
}

func NewIdempotencyRepository(db DBTX) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) Get(ctx context.Context, tx DBTX, key string) (*IdempotencyRecord, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	var rec IdempotencyRecord
	err := execDB.QueryRowContext(ctx, `
        SELECT key, order_id, request_hash, response_body, created_at
        FROM idempotency_keys
        WHERE key = $1
    `, key).Scan(&rec.Key, &rec.OrderID, &rec.RequestHash, &rec.ResponseBody, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orderflow_errors.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, tx DBTX, rec *IdempotencyRecord) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO idempotency_keys (key, order_id, request_hash, response_body, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, rec.Key, rec.OrderID, rec.RequestHash, rec.ResponseBody, rec.CreatedAt)
	if err != nil && IsUniqueViolation(err) {
		// A concurrent request with the same key won the race.
		return orderflow_errors.ErrAlreadyExists
	}
	return err
}
