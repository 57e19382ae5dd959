package syncstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cypher-service/internal/models"
	"cypher-service/internal/observability"
	"cypher-service/internal/repositories"
)

const defaultBatchSize = 256

// Projector drains the sync outbox and applies the pending mutations to the
// derived store. If an entry fails, the batch stops there and the remainder
// is retried on the next poll, preserving commit order.
type Projector struct {
	outbox    repositories.OutboxRepository
	store     Store
	interval  time.Duration
	batchSize int
}

// NewProjector constructs a Projector.
func NewProjector(outbox repositories.OutboxRepository, store Store, interval time.Duration) *Projector {
	return &Projector{
		outbox:    outbox,
		store:     store,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
}

// Run polls the outbox until the context is cancelled.
func (p *Projector) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Project(ctx); err != nil {
				log.Printf("sync projector: %v", err)
			}
		}
	}
}

// Project applies one batch of pending entries and acknowledges the ones
// that succeeded. It returns the number applied.
func (p *Projector) Project(ctx context.Context) (int, error) {
	entries, err := p.outbox.FetchBatch(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox batch: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	done := make([]int64, 0, len(entries))
	var applyErr error
	for _, entry := range entries {
		if applyErr = p.apply(ctx, entry); applyErr != nil {
			applyErr = fmt.Errorf("apply outbox entry %d (%s): %w", entry.ID, entry.Op, applyErr)
			break
		}
		done = append(done, entry.ID)
		observability.IncSyncOp(entry.Op)
	}

	if err := p.outbox.Delete(ctx, done); err != nil {
		return len(done), errors.Join(applyErr, fmt.Errorf("ack outbox entries: %w", err))
	}
	return len(done), applyErr
}

func (p *Projector) apply(ctx context.Context, entry models.OutboxEntry) error {
	switch entry.Op {
	case models.OutboxPut:
		return p.store.PutMessage(ctx, entry.ConversationID, entry.MessageID, entry.Payload)
	case models.OutboxRemove:
		return p.store.RemoveMessage(ctx, entry.ConversationID, entry.MessageID)
	case models.OutboxClear:
		return p.store.Clear(ctx, entry.ConversationID)
	}
	// Unknown ops are acknowledged rather than wedging the queue.
	log.Printf("sync projector: skipping unknown op %q", entry.Op)
	return nil
}
