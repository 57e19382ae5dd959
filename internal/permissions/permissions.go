package permissions

import (
	"cypher-service/internal/models"
)

// Action is a conversation-scoped action subject to authorization.
type Action string

const (
	// Owner-tier actions.
	ActionDeleteConversation Action = "DELETE_CONVERSATION"
	ActionClearConversation  Action = "CLEAR_CONVERSATION"
	ActionPromoteAdmin       Action = "PROMOTE_ADMIN"

	// Admin-capability actions.
	ActionAddParticipants    Action = "ADD_PARTICIPANTS"
	ActionRemoveParticipants Action = "REMOVE_PARTICIPANTS"
	ActionRename             Action = "RENAME"
	ActionPinMessage         Action = "PIN_MESSAGE"
	ActionUploadPhoto        Action = "UPLOAD_PHOTO"
	ActionSetPermissions     Action = "SET_PERMISSIONS"

	// Participant-level actions.
	ActionSendMessage      Action = "SEND_MESSAGE"
	ActionDeleteOwnMessage Action = "DELETE_OWN_MESSAGE"
	ActionLeave            Action = "LEAVE"
)

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

var adminCapabilityFor = map[Action]models.Capability{
	ActionAddParticipants:    models.CapAddParticipants,
	ActionRemoveParticipants: models.CapRemoveParticipants,
	ActionRename:             models.CapRename,
	ActionPinMessage:         models.CapPinMessage,
	ActionUploadPhoto:        models.CapUploadPhoto,
	ActionSetPermissions:     models.CapSetPermissions,
}

func participantFlagFor(m models.Member, action Action) (bool, bool) {
	switch action {
	case ActionSendMessage:
		return m.CanSendMessages, true
	case ActionDeleteOwnMessage:
		return m.CanDeleteOwnMessages, true
	case ActionLeave:
		return m.CanLeaveConversation, true
	}
	return false, false
}

// Authorize evaluates whether actorID may perform action, given the
// conversation's membership records. Checks run in tier order and the first
// match wins: owners pass every check unconditionally, admins need the
// specific capability granted, participants need the matching flag set.
// Authorize never mutates state.
func Authorize(members []models.Member, actorID string, action Action) Decision {
	var member *models.Member
	for i := range members {
		if members[i].UserID == actorID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return deny("not a member of this conversation")
	}

	// Owners hold unconditional authority over every gated action; a
	// restrictive participant flag never applies to them.
	if member.Tier == models.TierOwner {
		return allow()
	}

	switch action {
	case ActionDeleteConversation, ActionClearConversation, ActionPromoteAdmin:
		return deny("owner permission required")
	}

	if needed, ok := adminCapabilityFor[action]; ok {
		if member.Tier == models.TierAdmin && member.HasCapability(needed) {
			return allow()
		}
		return deny("insufficient permission")
	}

	if flag, ok := participantFlagFor(*member, action); ok {
		if flag {
			return allow()
		}
		return deny("insufficient permission")
	}

	return deny("unknown action")
}
