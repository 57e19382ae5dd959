package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
)

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv models.Conversation, members []models.Member) error
	Get(ctx context.Context, id string) (models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	ListIDs(ctx context.Context) ([]string, error)
	Members(ctx context.Context, id string) ([]models.Member, error)
	AddMembers(ctx context.Context, id string, members []models.Member) error
	RemoveMembers(ctx context.Context, id string, userIDs []string) error
	Rename(ctx context.Context, id, name string) error
	SetPinned(ctx context.Context, id, messageID string, pin bool) error
	SetMemberFlags(ctx context.Context, id, userID string, canSend, canDeleteOwn, canLeave bool) error
	SetMemberTier(ctx context.Context, id, userID string, tier models.Tier, capabilities []string) error
	UpdateLastRead(ctx context.Context, id, userID string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ConversationRepo is the sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts the conversation and all initial members atomically.
func (r *ConversationRepo) Create(ctx context.Context, conv models.Conversation, members []models.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, type, name) VALUES ($1, $2, $3)`,
		conv.ID, conv.Type, conv.Name); err != nil {
		return err
	}

	for _, m := range members {
		if err = insertMember(ctx, tx, conv.ID, m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertMember(ctx context.Context, tx *sqlx.Tx, conversationID string, m models.Member) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_members
            (conversation_id, user_id, tier, capabilities, can_send_messages, can_delete_own_messages, can_leave_conversation)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (conversation_id, user_id) DO NOTHING`,
		conversationID, m.UserID, m.Tier, m.Capabilities,
		m.CanSendMessages, m.CanDeleteOwnMessages, m.CanLeaveConversation)
	return err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, type, name, pinned_messages, created_at, updated_at FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, domain.ErrNotFound
	}
	return conv, err
}

// ListForUser returns conversations the user is a member of, newest first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT c.id, c.type, c.name, c.pinned_messages, c.created_at, c.updated_at
        FROM conversations c
        INNER JOIN conversation_members cm ON cm.conversation_id = c.id
        WHERE cm.user_id=$1
        ORDER BY c.updated_at DESC`, userID)
	return convs, err
}

// ListIDs enumerates every conversation id; used by the cleanup sweep.
func (r *ConversationRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM conversations ORDER BY id`)
	return ids, err
}

// Members returns all membership records for the conversation.
func (r *ConversationRepo) Members(ctx context.Context, id string) ([]models.Member, error) {
	var members []models.Member
	err := r.db.SelectContext(ctx, &members,
		`SELECT conversation_id, user_id, tier, capabilities,
            can_send_messages, can_delete_own_messages, can_leave_conversation,
            joined_at, last_read_at
        FROM conversation_members WHERE conversation_id=$1
        ORDER BY joined_at ASC`, id)
	return members, err
}

// AddMembers inserts membership records; adding an existing member is a no-op.
func (r *ConversationRepo) AddMembers(ctx context.Context, id string, members []models.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, m := range members {
		if err = insertMember(ctx, tx, id, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveMembers deletes membership records; removing an absent member is a no-op.
func (r *ConversationRepo) RemoveMembers(ctx context.Context, id string, userIDs []string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_members WHERE conversation_id=$1 AND user_id = ANY($2)`,
		id, pq.Array(userIDs))
	return err
}

// Rename updates the display name.
func (r *ConversationRepo) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET name=$2, updated_at=NOW() WHERE id=$1`, id, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetPinned adds or removes a message id from the pinned set, idempotently.
func (r *ConversationRepo) SetPinned(ctx context.Context, id, messageID string, pin bool) error {
	var query string
	if pin {
		query = `UPDATE conversations
            SET pinned_messages = array_append(pinned_messages, $2), updated_at=NOW()
            WHERE id=$1 AND NOT ($2 = ANY(pinned_messages))`
	} else {
		query = `UPDATE conversations
            SET pinned_messages = array_remove(pinned_messages, $2), updated_at=NOW()
            WHERE id=$1`
	}
	_, err := r.db.ExecContext(ctx, query, id, messageID)
	return err
}

// SetMemberFlags replaces a member's participant permission flags.
func (r *ConversationRepo) SetMemberFlags(ctx context.Context, id, userID string, canSend, canDeleteOwn, canLeave bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_members
        SET can_send_messages=$3, can_delete_own_messages=$4, can_leave_conversation=$5
        WHERE conversation_id=$1 AND user_id=$2`,
		id, userID, canSend, canDeleteOwn, canLeave)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetMemberTier changes a member's tier and capability set.
func (r *ConversationRepo) SetMemberTier(ctx context.Context, id, userID string, tier models.Tier, capabilities []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_members SET tier=$3, capabilities=$4
        WHERE conversation_id=$1 AND user_id=$2`,
		id, userID, tier, pq.StringArray(capabilities))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateLastRead records a read receipt for the member.
func (r *ConversationRepo) UpdateLastRead(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_members SET last_read_at=$3 WHERE conversation_id=$1 AND user_id=$2`,
		id, userID, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes the conversation, cascading to members and messages, and
// enqueues a sync-store clear, all in one transaction.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, id); err != nil {
		return err
	}
	if err = requireRow(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sync_outbox (conversation_id, op) VALUES ($1, $2)`,
		id, models.OutboxClear); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the total number of conversations.
func (r *ConversationRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations`)
	return count, err
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
