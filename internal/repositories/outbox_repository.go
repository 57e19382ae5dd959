package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cypher-service/internal/models"
)

// OutboxRepository reads and acknowledges pending sync-store mutations. Rows
// are written by the message and conversation repositories inside their own
// transactions; this repository only drains them.
type OutboxRepository interface {
	FetchBatch(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	Delete(ctx context.Context, ids []int64) error
}

// OutboxRepo is the sqlx implementation of OutboxRepository.
type OutboxRepo struct {
	db *sqlx.DB
}

// NewOutboxRepo constructs an OutboxRepo.
func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// FetchBatch returns the oldest pending entries, in commit order.
func (r *OutboxRepo) FetchBatch(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, conversation_id, message_id, op, payload, created_at
        FROM sync_outbox ORDER BY id ASC LIMIT $1`, limit)
	return entries, err
}

// Delete acknowledges processed entries.
func (r *OutboxRepo) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_outbox WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
