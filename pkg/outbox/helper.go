package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Enqueue stores payload as a pending event inside tx, so the event is
// published only if the surrounding write commits.
func (r *Repository) Enqueue(ctx context.Context, tx pgx.Tx, aggregateType string, aggregateID int64, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return r.InsertEvent(ctx, tx, &Event{
		AggregateType: aggregateType,
		AggregateID:   &aggregateID,
		RoutingKey:    routingKey,
		Payload:       body,
		Status:        StatusPending,
	})
}
