package permissions

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"cypher-service/internal/models"
)

func membership() []models.Member {
	return []models.Member{
		{
			UserID: "owner-1", Tier: models.TierOwner,
			Capabilities:    pq.StringArray{},
			CanSendMessages: false, CanDeleteOwnMessages: false, CanLeaveConversation: false,
		},
		{
			UserID: "admin-1", Tier: models.TierAdmin,
			Capabilities:    pq.StringArray{string(models.CapRename), string(models.CapPinMessage)},
			CanSendMessages: true, CanDeleteOwnMessages: true, CanLeaveConversation: true,
		},
		{
			UserID: "muted-1", Tier: models.TierParticipant,
			Capabilities:    pq.StringArray{},
			CanSendMessages: false, CanDeleteOwnMessages: true, CanLeaveConversation: true,
		},
		{
			UserID: "member-1", Tier: models.TierParticipant,
			Capabilities:    pq.StringArray{},
			CanSendMessages: true, CanDeleteOwnMessages: true, CanLeaveConversation: false,
		},
	}
}

func TestAuthorizeOwnerPassesEverything(t *testing.T) {
	members := membership()
	actions := []Action{
		ActionDeleteConversation, ActionClearConversation, ActionPromoteAdmin,
		ActionAddParticipants, ActionRemoveParticipants, ActionRename,
		ActionPinMessage, ActionUploadPhoto, ActionSetPermissions,
		ActionSendMessage, ActionDeleteOwnMessage, ActionLeave,
	}
	for _, action := range actions {
		d := Authorize(members, "owner-1", action)
		assert.True(t, d.Allowed, "owner should be allowed %s", action)
	}
}

func TestAuthorizeOwnerIgnoresRestrictiveFlags(t *testing.T) {
	// The owner record has every participant flag off; owner tier wins first.
	d := Authorize(membership(), "owner-1", ActionSendMessage)
	assert.True(t, d.Allowed)
}

func TestAuthorizeAdminCapabilities(t *testing.T) {
	members := membership()

	assert.True(t, Authorize(members, "admin-1", ActionRename).Allowed)
	assert.True(t, Authorize(members, "admin-1", ActionPinMessage).Allowed)

	d := Authorize(members, "admin-1", ActionAddParticipants)
	assert.False(t, d.Allowed, "capability not granted")
	assert.Equal(t, "insufficient permission", d.Reason)
}

func TestAuthorizeAdminDeniedOwnerActions(t *testing.T) {
	members := membership()
	for _, action := range []Action{ActionDeleteConversation, ActionClearConversation, ActionPromoteAdmin} {
		d := Authorize(members, "admin-1", action)
		assert.False(t, d.Allowed)
		assert.Equal(t, "owner permission required", d.Reason)
	}
}

func TestAuthorizeParticipantFlags(t *testing.T) {
	members := membership()

	assert.False(t, Authorize(members, "muted-1", ActionSendMessage).Allowed)
	assert.True(t, Authorize(members, "muted-1", ActionDeleteOwnMessage).Allowed)
	assert.True(t, Authorize(members, "muted-1", ActionLeave).Allowed)

	assert.True(t, Authorize(members, "member-1", ActionSendMessage).Allowed)
	assert.False(t, Authorize(members, "member-1", ActionLeave).Allowed)
}

func TestAuthorizeParticipantDeniedAdminActions(t *testing.T) {
	members := membership()
	for _, action := range []Action{ActionRename, ActionAddParticipants, ActionSetPermissions} {
		assert.False(t, Authorize(members, "member-1", action).Allowed)
	}
}

func TestAuthorizeNonMember(t *testing.T) {
	d := Authorize(membership(), "stranger", ActionSendMessage)
	assert.False(t, d.Allowed)
	assert.Equal(t, "not a member of this conversation", d.Reason)
}

func TestAuthorizeUnknownAction(t *testing.T) {
	d := Authorize(membership(), "member-1", Action("FLY"))
	assert.False(t, d.Allowed)
	assert.Equal(t, "unknown action", d.Reason)
}
