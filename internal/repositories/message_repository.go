package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
)

// MessageRepository abstracts message persistence. Every mutation writes a
// sync_outbox row in the same transaction so the derived real-time store
// cannot diverge from the document store on partial failure.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, conversationID, messageID string) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	UpdateBody(ctx context.Context, conversationID, messageID, body string) (models.Message, error)
	SoftDelete(ctx context.Context, conversationID, messageID string) error
	DeleteExpired(ctx context.Context, conversationID string, now time.Time) (int, error)
	DeleteAllForConversation(ctx context.Context, conversationID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// MessageRepo is the sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, body, message_type, deleted, self_destruct_at, created_at, updated_at`

// Create persists a new message and enqueues the sync-store put.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var stored models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body, message_type, self_destruct_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.Type, msg.SelfDestructAt).
		StructScan(&stored); err != nil {
		return models.Message{}, err
	}

	if err = enqueuePut(ctx, tx, stored); err != nil {
		return models.Message{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return stored, nil
}

// Get fetches a single message scoped to its conversation.
func (r *MessageRepo) Get(ctx context.Context, conversationID, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 AND id=$2`,
		conversationID, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, domain.ErrNotFound
	}
	return msg, err
}

// ListForConversation returns the conversation's messages ordered by creation.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC`,
		conversationID)
	return msgs, err
}

// UpdateBody replaces the body and bumps updated_at. It deliberately leaves
// self_destruct_at untouched: edits never re-arm or clear a TTL.
func (r *MessageRepo) UpdateBody(ctx context.Context, conversationID, messageID, body string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var updated models.Message
	err = tx.QueryRowxContext(ctx,
		`UPDATE messages SET body=$3, updated_at=NOW()
        WHERE conversation_id=$1 AND id=$2
        RETURNING `+messageColumns,
		conversationID, messageID, body).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		err = domain.ErrNotFound
		return models.Message{}, err
	}
	if err != nil {
		return models.Message{}, err
	}

	if err = enqueuePut(ctx, tx, updated); err != nil {
		return models.Message{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return updated, nil
}

// SoftDelete flags the message as deleted. The record and its body bytes are
// retained until a purge, but the projected copy is redacted immediately.
func (r *MessageRepo) SoftDelete(ctx context.Context, conversationID, messageID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var updated models.Message
	err = tx.QueryRowxContext(ctx,
		`UPDATE messages SET deleted=TRUE, updated_at=NOW()
        WHERE conversation_id=$1 AND id=$2
        RETURNING `+messageColumns,
		conversationID, messageID).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		err = domain.ErrNotFound
		return err
	}
	if err != nil {
		return err
	}

	if err = enqueuePut(ctx, tx, updated.Redacted()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteExpired permanently removes every message in the conversation whose
// self-destruct time has passed, enqueueing a sync-store removal for each.
// Running it twice over the same state deletes nothing the second time.
func (r *MessageRepo) DeleteExpired(ctx context.Context, conversationID string, now time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var ids []string
	if err = tx.SelectContext(ctx, &ids,
		`DELETE FROM messages
        WHERE conversation_id=$1 AND self_destruct_at IS NOT NULL AND self_destruct_at <= $2
        RETURNING id`,
		conversationID, now); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO sync_outbox (conversation_id, message_id, op) VALUES ($1, $2, $3)`,
			conversationID, id, models.OutboxRemove); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteAllForConversation removes every message in the conversation and
// enqueues a sync-store clear. Used by the owner-only clear operation.
func (r *MessageRepo) DeleteAllForConversation(ctx context.Context, conversationID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id=$1`, conversationID); err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sync_outbox (conversation_id, op) VALUES ($1, $2)`,
		conversationID, models.OutboxClear); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Count returns the total number of stored messages.
func (r *MessageRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`)
	return count, err
}

func enqueuePut(ctx context.Context, tx *sqlx.Tx, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_outbox (conversation_id, message_id, op, payload) VALUES ($1, $2, $3, $4)`,
		msg.ConversationID, msg.ID, models.OutboxPut, string(payload))
	return err
}
