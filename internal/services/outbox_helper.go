package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"orderflow/internal/domain/outbox"
	"orderflow/internal/events"
	"orderflow/internal/repository"
)

// saveOutboxEvent serializes the envelope and inserts it into the service's
// outbox inside the caller's transaction. This is the atomic
// "mutate state + emit event" seam: the row commits or rolls back together
// with the business change.
func saveOutboxEvent(ctx context.Context, repo repository.OutboxRepository, tx repository.DBTX,
	aggregateType string, aggregateID uuid.UUID, env events.Envelope) error {

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("serialize event for outbox: %w", err)
	}
	return repo.Create(ctx, tx, outbox.NewRecord(aggregateType, aggregateID, env.EventType, payload))
}
