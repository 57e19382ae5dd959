package models

import "time"

// MessageType distinguishes plain text from media messages.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageImage
}

// Message is a single message inside a conversation. SelfDestructAt, once
// set at creation, is never changed by any operation other than the purge
// that removes the whole record.
type Message struct {
	ID             string      `db:"id" json:"id"`
	ConversationID string      `db:"conversation_id" json:"conversation_id"`
	SenderID       string      `db:"sender_id" json:"sender_id"`
	Body           string      `db:"body" json:"body"`
	Type           MessageType `db:"message_type" json:"message_type"`
	Deleted        bool        `db:"deleted" json:"deleted"`
	SelfDestructAt *time.Time  `db:"self_destruct_at" json:"self_destruct_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Redacted returns a copy safe to serve to readers: a soft-deleted message
// keeps its record but must never expose its body.
func (m Message) Redacted() Message {
	if m.Deleted {
		m.Body = ""
	}
	return m
}

// ConversationEvent is broadcast over websocket connections for a conversation.
type ConversationEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Typing    bool     `json:"typing,omitempty"`
}
