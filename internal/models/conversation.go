package models

import (
	"time"

	"github.com/lib/pq"
)

// ConversationType classifies a conversation.
type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationChannel ConversationType = "channel"
)

// Valid reports whether t is a known conversation type.
func (t ConversationType) Valid() bool {
	return t == ConversationDirect || t == ConversationGroup || t == ConversationChannel
}

// Tier is the membership tier of a user inside a conversation.
type Tier string

const (
	TierOwner       Tier = "owner"
	TierAdmin       Tier = "admin"
	TierParticipant Tier = "participant"
)

// Capability names an admin-grantable action.
type Capability string

const (
	CapAddParticipants    Capability = "ADD_PARTICIPANTS"
	CapRemoveParticipants Capability = "REMOVE_PARTICIPANTS"
	CapRename             Capability = "RENAME"
	CapPinMessage         Capability = "PIN_MESSAGE"
	CapUploadPhoto        Capability = "UPLOAD_PHOTO"
	CapSetPermissions     Capability = "SET_PERMISSIONS"
)

// KnownCapability reports whether c is one of the defined admin capabilities.
func KnownCapability(c Capability) bool {
	switch c {
	case CapAddParticipants, CapRemoveParticipants, CapRename,
		CapPinMessage, CapUploadPhoto, CapSetPermissions:
		return true
	}
	return false
}

// Conversation is the top-level document for a direct chat, group or channel.
type Conversation struct {
	ID             string           `db:"id" json:"id"`
	Type           ConversationType `db:"type" json:"type"`
	Name           string           `db:"name" json:"name"`
	PinnedMessages pq.StringArray   `db:"pinned_messages" json:"pinned_messages"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Member is one user's membership record in a conversation. A single row
// carries the tier, the admin capability set and the participant flags, so
// there is exactly one shape for role data.
type Member struct {
	ConversationID string         `db:"conversation_id" json:"conversation_id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Tier           Tier           `db:"tier" json:"tier"`
	Capabilities   pq.StringArray `db:"capabilities" json:"capabilities"`

	CanSendMessages      bool `db:"can_send_messages" json:"can_send_messages"`
	CanDeleteOwnMessages bool `db:"can_delete_own_messages" json:"can_delete_own_messages"`
	CanLeaveConversation bool `db:"can_leave_conversation" json:"can_leave_conversation"`

	JoinedAt   time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
}

// HasCapability reports whether the member's capability set contains c.
func (m Member) HasCapability(c Capability) bool {
	for _, have := range m.Capabilities {
		if Capability(have) == c {
			return true
		}
	}
	return false
}

// DefaultParticipant builds the participant record assigned to invitees.
func DefaultParticipant(conversationID, userID string) Member {
	return Member{
		ConversationID:       conversationID,
		UserID:               userID,
		Tier:                 TierParticipant,
		Capabilities:         pq.StringArray{},
		CanSendMessages:      true,
		CanDeleteOwnMessages: true,
		CanLeaveConversation: true,
	}
}
