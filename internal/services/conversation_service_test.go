package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cypher-service/internal/domain"
	"cypher-service/internal/mocks"
	"cypher-service/internal/models"
	"cypher-service/internal/payment"
)

const freeGroupLimit = 10

type convFixture struct {
	convRepo *mocks.ConversationRepositoryMock
	msgRepo  *mocks.MessageRepositoryMock
	userRepo *mocks.UserRepositoryMock
	verifier *mocks.VerifierMock
	notifier *mocks.NotifierMock
	svc      *ConversationService
}

func newConvFixture() *convFixture {
	f := &convFixture{
		convRepo: new(mocks.ConversationRepositoryMock),
		msgRepo:  new(mocks.MessageRepositoryMock),
		userRepo: new(mocks.UserRepositoryMock),
		verifier: new(mocks.VerifierMock),
		notifier: new(mocks.NotifierMock),
	}
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.svc = NewConversationService(f.convRepo, f.msgRepo, f.userRepo, f.verifier, f.notifier, freeGroupLimit)
	return f
}

func participantIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, "user-"+string(rune('a'+i)))
	}
	return ids
}

func TestCreateChannelWithoutPaymentCreatesNothing(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator"}, nil)
	f.userRepo.On("ConsumeFreeGrant", mock.Anything, "creator", models.ConversationChannel).Return(false, nil)
	f.verifier.On("Verify", mock.Anything, "creator", payment.KindChannel, "BTC").Return(false, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CreatorID:      "creator",
		ParticipantIDs: []string{"user-a"},
		Type:           models.ConversationChannel,
		Name:           "announcements",
		Currency:       "BTC",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
	f.convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateChannelConsumesFreeGrant(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator"}, nil)
	f.userRepo.On("ConsumeFreeGrant", mock.Anything, "creator", models.ConversationChannel).Return(true, nil)
	f.convRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.convRepo.On("Get", mock.Anything, mock.Anything).Return(models.Conversation{ID: "conv-1", Type: models.ConversationChannel}, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CreatorID: "creator",
		Type:      models.ConversationChannel,
		Name:      "announcements",
	})
	require.NoError(t, err)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateVerifiedAccountSkipsGate(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator", ChannelPaymentVerified: true}, nil)
	f.convRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.convRepo.On("Get", mock.Anything, mock.Anything).Return(models.Conversation{ID: "conv-1"}, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{CreatorID: "creator", Type: models.ConversationChannel})
	require.NoError(t, err)
	f.userRepo.AssertNotCalled(t, "ConsumeFreeGrant", mock.Anything, mock.Anything, mock.Anything)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSmallGroupNeedsNoPayment(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator"}, nil)
	f.convRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(members []models.Member) bool {
		if len(members) != freeGroupLimit {
			return false
		}
		return members[0].UserID == "creator" && members[0].Tier == models.TierOwner
	})).Return(nil)
	f.convRepo.On("Get", mock.Anything, mock.Anything).Return(models.Conversation{ID: "conv-1"}, nil)

	// Creator plus nine invitees sits exactly at the free limit.
	_, err := f.svc.Create(context.Background(), CreateInput{
		CreatorID:      "creator",
		ParticipantIDs: participantIDs(9),
		Type:           models.ConversationGroup,
		Name:           "team",
	})
	require.NoError(t, err)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.userRepo.AssertNotCalled(t, "ConsumeFreeGrant", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateLargeGroupHitsGate(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator"}, nil)
	f.userRepo.On("ConsumeFreeGrant", mock.Anything, "creator", models.ConversationGroup).Return(false, nil)
	f.verifier.On("Verify", mock.Anything, "creator", payment.KindGroup, "").Return(false, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CreatorID:      "creator",
		ParticipantIDs: participantIDs(10),
		Type:           models.ConversationGroup,
		Name:           "big team",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
	f.convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateDirectNeedsExactlyOneInvitee(t *testing.T) {
	f := newConvFixture()
	f.userRepo.On("GetByID", mock.Anything, "creator").Return(models.User{ID: "creator"}, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CreatorID:      "creator",
		ParticipantIDs: []string{"user-a", "user-b"},
		Type:           models.ConversationDirect,
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func directMembers() []models.Member {
	owner := models.Member{ConversationID: "conv-1", UserID: "user-1", Tier: models.TierOwner,
		CanSendMessages: true, CanDeleteOwnMessages: true, CanLeaveConversation: true}
	return []models.Member{owner, models.DefaultParticipant("conv-1", "user-2")}
}

func groupMembers() []models.Member {
	owner := models.Member{ConversationID: "conv-1", UserID: "user-1", Tier: models.TierOwner,
		CanSendMessages: true, CanDeleteOwnMessages: true, CanLeaveConversation: true}
	return []models.Member{
		owner,
		models.DefaultParticipant("conv-1", "user-2"),
		models.DefaultParticipant("conv-1", "user-3"),
	}
}

func TestLeaveDirectDeletesConversation(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationDirect}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(directMembers(), nil)
	f.convRepo.On("Delete", mock.Anything, "conv-1").Return(nil)

	deleted, err := f.svc.Leave(context.Background(), "conv-1", "user-2")
	require.NoError(t, err)
	assert.True(t, deleted)
	f.convRepo.AssertCalled(t, "Delete", mock.Anything, "conv-1")
	// The terminal path is one conversation delete; there is no separate
	// membership removal the cascade could leave half-applied.
	f.convRepo.AssertNotCalled(t, "RemoveMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestSoleOwnerCannotLeave(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	_, err := f.svc.Leave(context.Background(), "conv-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.convRepo.AssertNotCalled(t, "RemoveMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaveWithoutFlagForbidden(t *testing.T) {
	f := newConvFixture()
	members := groupMembers()
	members[1].CanLeaveConversation = false
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(members, nil)

	_, err := f.svc.Leave(context.Background(), "conv-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRemoveLastOwnerConflicts(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	_, err := f.svc.RemoveParticipants(context.Background(), "conv-1", "user-1", []string{"user-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.convRepo.AssertNotCalled(t, "RemoveMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveParticipantKeepsHealthyGroup(t *testing.T) {
	f := newConvFixture()
	members := groupMembers()
	members = append(members, models.DefaultParticipant("conv-1", "user-4"))
	admin := models.DefaultParticipant("conv-1", "user-5")
	admin.Tier = models.TierAdmin
	members = append(members, admin)

	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(members, nil)
	f.convRepo.On("RemoveMembers", mock.Anything, "conv-1", []string{"user-2"}).Return(nil)

	deleted, err := f.svc.RemoveParticipants(context.Background(), "conv-1", "user-1", []string{"user-2"})
	require.NoError(t, err)
	assert.False(t, deleted)
	f.convRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRemoveAdminFromSmallAdministrationDeletes(t *testing.T) {
	f := newConvFixture()
	members := groupMembers()
	admin := models.DefaultParticipant("conv-1", "user-4")
	admin.Tier = models.TierAdmin
	members = append(members, admin)

	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(members, nil)
	f.convRepo.On("Delete", mock.Anything, "conv-1").Return(nil)

	// Owner plus one admin is an administration of two; removing the admin
	// drops it below the working minimum.
	deleted, err := f.svc.RemoveParticipants(context.Background(), "conv-1", "user-1", []string{"user-4"})
	require.NoError(t, err)
	assert.True(t, deleted)
	f.convRepo.AssertNotCalled(t, "RemoveMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestTerminalRemoveFailureLeavesMembershipIntact(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationDirect}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(directMembers(), nil)
	f.convRepo.On("Delete", mock.Anything, "conv-1").Return(errors.New("db unreachable"))

	_, err := f.svc.Leave(context.Background(), "conv-1", "user-2")
	assert.Error(t, err)
	// The failed delete is the only write attempted, so nothing is
	// half-applied.
	f.convRepo.AssertNotCalled(t, "RemoveMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromoteAdminValidatesCapabilities(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	err := f.svc.PromoteAdmin(context.Background(), "conv-1", "user-1", "user-2", []string{"LAUNCH_ROCKETS"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.convRepo.AssertNotCalled(t, "SetMemberTier", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPromoteAdminOwnerOnly(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	err := f.svc.PromoteAdmin(context.Background(), "conv-1", "user-2", "user-3", []string{string(models.CapRename)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPromoteAdminSetsTier(t *testing.T) {
	f := newConvFixture()
	caps := []string{string(models.CapRename), string(models.CapPinMessage)}
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)
	f.convRepo.On("SetMemberTier", mock.Anything, "conv-1", "user-2", models.TierAdmin, caps).Return(nil)

	err := f.svc.PromoteAdmin(context.Background(), "conv-1", "user-1", "user-2", caps)
	require.NoError(t, err)
	f.convRepo.AssertExpectations(t)
}

func TestClearOwnerOnly(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	_, err := f.svc.Clear(context.Background(), "conv-1", "user-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.msgRepo.AssertNotCalled(t, "DeleteAllForConversation", mock.Anything, mock.Anything)
}

func TestClearKeepsConversation(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)
	f.msgRepo.On("DeleteAllForConversation", mock.Anything, "conv-1").Return(7, nil)

	removed, err := f.svc.Clear(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 7, removed)
	f.convRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSetMemberPermissionsCannotTouchOwner(t *testing.T) {
	f := newConvFixture()
	f.convRepo.On("Get", mock.Anything, "conv-1").Return(models.Conversation{ID: "conv-1", Type: models.ConversationGroup}, nil)
	f.convRepo.On("Members", mock.Anything, "conv-1").Return(groupMembers(), nil)

	err := f.svc.SetMemberPermissions(context.Background(), "conv-1", "user-1", "user-1", false, false, false)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
