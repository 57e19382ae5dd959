package models

import "time"

// Outbox operations applied to the derived sync store.
const (
	OutboxPut    = "put"
	OutboxRemove = "remove"
	OutboxClear  = "clear"
)

// OutboxEntry is a pending sync-store mutation, written in the same
// transaction as the document-store write it mirrors.
type OutboxEntry struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	MessageID      string    `db:"message_id" json:"message_id"`
	Op             string    `db:"op" json:"op"`
	Payload        string    `db:"payload" json:"payload"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
