package models

import "time"

// Notification is a persisted per-recipient notification record.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	SenderID    string    `db:"sender_id" json:"sender_id"`
	Body        string    `db:"body" json:"body"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
