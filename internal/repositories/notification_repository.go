package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"cypher-service/internal/models"
)

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, id int64) error
}

// NotificationRepo is the sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateBatch inserts notification records in one transaction.
func (r *NotificationRepo) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, n := range notifications {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO notifications (recipient_id, sender_id, body) VALUES ($1, $2, $3)`,
			n.RecipientID, n.SenderID, n.Body); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, recipient_id, sender_id, body, read, created_at
        FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC`, userID)
	return out, err
}

// MarkRead flags a notification as read; scoped to the recipient.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient_id=$2`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
