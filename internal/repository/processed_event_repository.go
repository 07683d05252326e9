package repository

import (
	"context"

	"github.com/google/uuid"

	"orderflow/internal/domain/event"
)

type processedEventRepository struct {
	db DBTX
}

func NewProcessedEventRepository(db DBTX) ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

func (r *processedEventRepository) Exists(ctx context.Context, tx DBTX, eventID uuid.UUID) (bool, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	var exists bool
	err := execDB.QueryRowContext(ctx, `
        SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)
    `, eventID).Scan(&exists)
	return exists, err
}

func (r *processedEventRepository) Create(ctx context.Context, tx DBTX, eventID uuid.UUID) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	rec := event.NewProcessedEvent(eventID)
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO processed_events (event_id, processed_at)
        VALUES ($1,$2)
    `, rec.EventID, rec.ProcessedAt)
	return err
}
