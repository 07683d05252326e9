package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/domain/outbox"
)

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, tx DBTX, rec *outbox.Record) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, created_at, published)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `,
		rec.ID,
		rec.AggregateType,
		rec.AggregateID,
		rec.EventType,
		rec.Payload,
		rec.CreatedAt,
		rec.Published,
	)
	return err
}

// GetUnpublished returns unpublished records in creation order. The relay
// depends on that order: saga causality is only preserved if events leave
// in the order they were written. Ordering uses the insert sequence, not
// created_at, because two inserts in one transaction can share a timestamp.
func (r *outboxRepository) GetUnpublished(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, published
        FROM outbox_events
        WHERE published = false
        ORDER BY position ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []outbox.Record
	for rows.Next() {
		var rec outbox.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.AggregateType,
			&rec.AggregateID,
			&rec.EventType,
			&rec.Payload,
			&rec.CreatedAt,
			&rec.Published,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET published = true
        WHERE id = $1
    `, id)
	return err
}

func (r *outboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM outbox_events
        WHERE published = true AND created_at < $1
    `, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
