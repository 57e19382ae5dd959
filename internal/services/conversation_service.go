package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
	"cypher-service/internal/payment"
	"cypher-service/internal/permissions"
	"cypher-service/internal/repositories"
)

// ConversationService implements conversation creation, membership mutation
// and the terminal-state rules that delete a conversation outright.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	payments      payment.Verifier
	notifier      Notifier

	// maxFreeGroup is the largest group size that needs no payment.
	maxFreeGroup int
}

// NewConversationService constructs a ConversationService.
func NewConversationService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	payments payment.Verifier,
	notifier Notifier,
	maxFreeGroup int,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		payments:      payments,
		notifier:      notifier,
		maxFreeGroup:  maxFreeGroup,
	}
}

// CreateInput carries everything needed to open a conversation.
type CreateInput struct {
	CreatorID      string
	ParticipantIDs []string
	Type           models.ConversationType
	Name           string
	Currency       string
}

// Create opens a conversation with the creator as owner and every invitee as
// a default participant. Channels always pass the payment gate; groups pass
// it only above the free size. If the gate fails, nothing is created.
func (s *ConversationService) Create(ctx context.Context, in CreateInput) (models.Conversation, error) {
	if !in.Type.Valid() {
		return models.Conversation{}, fmt.Errorf("unknown conversation type %q: %w", in.Type, domain.ErrBadRequest)
	}

	creator, err := s.users.GetByID(ctx, in.CreatorID)
	if err != nil {
		return models.Conversation{}, err
	}

	invitees := dedupe(in.ParticipantIDs, in.CreatorID)
	total := len(invitees) + 1

	switch in.Type {
	case models.ConversationDirect:
		if len(invitees) != 1 {
			return models.Conversation{}, fmt.Errorf("a direct conversation needs exactly one other participant: %w", domain.ErrBadRequest)
		}
	case models.ConversationChannel:
		if err := s.requirePayment(ctx, creator, payment.KindChannel, in.Currency, creator.ChannelPaymentVerified, models.ConversationChannel); err != nil {
			return models.Conversation{}, err
		}
	case models.ConversationGroup:
		if total > s.maxFreeGroup {
			if err := s.requirePayment(ctx, creator, payment.KindGroup, in.Currency, creator.GroupPaymentVerified, models.ConversationGroup); err != nil {
				return models.Conversation{}, err
			}
		}
	}

	conv := models.Conversation{
		ID:             uuid.NewString(),
		Type:           in.Type,
		Name:           in.Name,
		PinnedMessages: pq.StringArray{},
	}

	members := make([]models.Member, 0, total)
	members = append(members, models.Member{
		ConversationID:       conv.ID,
		UserID:               in.CreatorID,
		Tier:                 models.TierOwner,
		Capabilities:         pq.StringArray{},
		CanSendMessages:      true,
		CanDeleteOwnMessages: true,
		CanLeaveConversation: true,
	})
	for _, id := range invitees {
		members = append(members, models.DefaultParticipant(conv.ID, id))
	}

	if err := s.conversations.Create(ctx, conv, members); err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	s.notifier.Notify(ctx, invitees, in.CreatorID, createdText(in.Type))
	return s.conversations.Get(ctx, conv.ID)
}

// requirePayment passes when the account is already verified, when a free
// grant can be consumed, or when the external verifier confirms payment.
func (s *ConversationService) requirePayment(ctx context.Context, creator models.User, kind payment.Kind, currency string, verified bool, grantKind models.ConversationType) error {
	if verified {
		return nil
	}
	ok, err := s.users.ConsumeFreeGrant(ctx, creator.ID, grantKind)
	if err != nil {
		return fmt.Errorf("consume free grant: %w", err)
	}
	if ok {
		return nil
	}
	success, err := s.payments.Verify(ctx, creator.ID, kind, currency)
	if err != nil {
		return fmt.Errorf("verify payment: %w", err)
	}
	if !success {
		return fmt.Errorf("payment required for %s creation: %w", kind, domain.ErrPaymentRequired)
	}
	return nil
}

// Get returns the conversation for a member.
func (s *ConversationService) Get(ctx context.Context, conversationID, requesterID string) (models.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if _, err := s.requireMembership(ctx, conversationID, requesterID); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// ListForUser returns every conversation the user belongs to.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.conversations.ListForUser(ctx, userID)
}

// Members returns the membership records, visible to members only.
func (s *ConversationService) Members(ctx context.Context, conversationID, requesterID string) ([]models.Member, error) {
	members, err := s.membersOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if findMember(members, requesterID) == nil {
		return nil, fmt.Errorf("not a member of this conversation: %w", domain.ErrForbidden)
	}
	return members, nil
}

// AddParticipants invites users as default participants. Adding an existing
// member is a no-op.
func (s *ConversationService) AddParticipants(ctx context.Context, conversationID, actorID string, userIDs []string) error {
	members, err := s.authorize(ctx, conversationID, actorID, permissions.ActionAddParticipants)
	if err != nil {
		return err
	}

	added := make([]models.Member, 0, len(userIDs))
	notify := make([]string, 0, len(userIDs))
	for _, id := range dedupe(userIDs, actorID) {
		if findMember(members, id) != nil {
			continue
		}
		added = append(added, models.DefaultParticipant(conversationID, id))
		notify = append(notify, id)
	}
	if len(added) == 0 {
		return nil
	}

	if err := s.conversations.AddMembers(ctx, conversationID, added); err != nil {
		return fmt.Errorf("add participants: %w", err)
	}
	s.notifier.Notify(ctx, notify, actorID, "You were added to a conversation")
	return nil
}

// RemoveParticipants evicts the given users. It reports whether the removal
// drove the conversation into a terminal state and deleted it: a direct chat
// down to one participant, an administration left unable to function, or an
// empty member list.
func (s *ConversationService) RemoveParticipants(ctx context.Context, conversationID, actorID string, userIDs []string) (bool, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	members, err := s.conversations.Members(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if d := permissions.Authorize(members, actorID, permissions.ActionRemoveParticipants); !d.Allowed {
		return false, fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
	}

	targets := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		targets[id] = true
	}

	owners, adminish, removedAdminish, remaining := 0, 0, 0, 0
	remainingOwners := 0
	for _, m := range members {
		privileged := m.Tier == models.TierOwner || m.Tier == models.TierAdmin
		if m.Tier == models.TierOwner {
			owners++
		}
		if privileged {
			adminish++
		}
		if targets[m.UserID] {
			if privileged {
				removedAdminish++
			}
			continue
		}
		remaining++
		if m.Tier == models.TierOwner {
			remainingOwners++
		}
	}

	if owners > 0 && remainingOwners == 0 {
		return false, fmt.Errorf("cannot remove the last owner: %w", domain.ErrConflict)
	}

	// A terminal removal is applied as a single conversation delete; the
	// cascade takes the membership rows with it, so the caller never
	// observes the removal without the deletion.
	if s.terminal(conv.Type, remaining, adminish, removedAdminish) {
		if err := s.conversations.Delete(ctx, conversationID); err != nil {
			return false, fmt.Errorf("delete terminal conversation: %w", err)
		}
		return true, nil
	}

	if err := s.conversations.RemoveMembers(ctx, conversationID, userIDs); err != nil {
		return false, fmt.Errorf("remove participants: %w", err)
	}
	return false, nil
}

// terminal reports whether the conversation can no longer function after a
// membership removal and must be deleted.
func (s *ConversationService) terminal(convType models.ConversationType, remaining, adminishBefore, removedAdminish int) bool {
	if remaining == 0 {
		return true
	}
	if convType == models.ConversationDirect && remaining <= 1 {
		return true
	}
	// Removing privileged members from an administration of two or fewer
	// leaves it below the working minimum.
	if removedAdminish > 0 && adminishBefore <= 2 {
		return true
	}
	return false
}

// Leave removes the caller from the conversation. The sole owner cannot
// leave; the conversation is deleted when no participants remain, or when a
// direct chat drops to one.
func (s *ConversationService) Leave(ctx context.Context, conversationID, userID string) (bool, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	members, err := s.conversations.Members(ctx, conversationID)
	if err != nil {
		return false, err
	}
	member := findMember(members, userID)
	if member == nil {
		return false, fmt.Errorf("not a member of this conversation: %w", domain.ErrNotFound)
	}
	if d := permissions.Authorize(members, userID, permissions.ActionLeave); !d.Allowed {
		return false, fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
	}

	if member.Tier == models.TierOwner {
		owners := 0
		for _, m := range members {
			if m.Tier == models.TierOwner {
				owners++
			}
		}
		if owners == 1 && len(members) > 1 {
			return false, fmt.Errorf("the sole owner cannot leave the conversation: %w", domain.ErrConflict)
		}
	}

	// Same single-transaction rule as RemoveParticipants: a leave that
	// empties the conversation, or strands a direct chat, is applied as one
	// conversation delete.
	remaining := len(members) - 1
	if remaining == 0 || (conv.Type == models.ConversationDirect && remaining <= 1) {
		if err := s.conversations.Delete(ctx, conversationID); err != nil {
			return false, fmt.Errorf("delete terminal conversation: %w", err)
		}
		return true, nil
	}

	if err := s.conversations.RemoveMembers(ctx, conversationID, []string{userID}); err != nil {
		return false, fmt.Errorf("leave conversation: %w", err)
	}
	return false, nil
}

// Rename updates the display name.
func (s *ConversationService) Rename(ctx context.Context, conversationID, actorID, name string) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.authorize(ctx, conversationID, actorID, permissions.ActionRename); err != nil {
		return err
	}
	return s.conversations.Rename(ctx, conversationID, name)
}

// Pin adds or removes a message from the pinned set.
func (s *ConversationService) Pin(ctx context.Context, conversationID, actorID, messageID string, pin bool) error {
	if _, err := s.authorize(ctx, conversationID, actorID, permissions.ActionPinMessage); err != nil {
		return err
	}
	if pin {
		if _, err := s.messages.Get(ctx, conversationID, messageID); err != nil {
			return err
		}
	}
	return s.conversations.SetPinned(ctx, conversationID, messageID, pin)
}

// SetMemberPermissions replaces a member's participant flags.
func (s *ConversationService) SetMemberPermissions(ctx context.Context, conversationID, actorID, targetID string, canSend, canDeleteOwn, canLeave bool) error {
	members, err := s.authorize(ctx, conversationID, actorID, permissions.ActionSetPermissions)
	if err != nil {
		return err
	}
	target := findMember(members, targetID)
	if target == nil {
		return fmt.Errorf("target is not a member: %w", domain.ErrNotFound)
	}
	if target.Tier == models.TierOwner {
		return fmt.Errorf("owner permissions cannot be restricted: %w", domain.ErrConflict)
	}
	return s.conversations.SetMemberFlags(ctx, conversationID, targetID, canSend, canDeleteOwn, canLeave)
}

// PromoteAdmin raises a participant to admin with the given capability set.
// Owner-only.
func (s *ConversationService) PromoteAdmin(ctx context.Context, conversationID, actorID, targetID string, capabilities []string) error {
	members, err := s.authorize(ctx, conversationID, actorID, permissions.ActionPromoteAdmin)
	if err != nil {
		return err
	}
	for _, c := range capabilities {
		if !models.KnownCapability(models.Capability(c)) {
			return fmt.Errorf("unknown capability %q: %w", c, domain.ErrBadRequest)
		}
	}
	target := findMember(members, targetID)
	if target == nil {
		return fmt.Errorf("target is not a member: %w", domain.ErrNotFound)
	}
	if target.Tier == models.TierOwner {
		return fmt.Errorf("an owner cannot be demoted to admin: %w", domain.ErrConflict)
	}
	return s.conversations.SetMemberTier(ctx, conversationID, targetID, models.TierAdmin, capabilities)
}

// Delete removes the conversation and everything under it. Owner-only.
func (s *ConversationService) Delete(ctx context.Context, conversationID, actorID string) error {
	if _, err := s.authorize(ctx, conversationID, actorID, permissions.ActionDeleteConversation); err != nil {
		return err
	}
	return s.conversations.Delete(ctx, conversationID)
}

// Clear wipes the conversation's message history but keeps the conversation
// and its membership. Owner-only.
func (s *ConversationService) Clear(ctx context.Context, conversationID, actorID string) (int, error) {
	if _, err := s.authorize(ctx, conversationID, actorID, permissions.ActionClearConversation); err != nil {
		return 0, err
	}
	return s.messages.DeleteAllForConversation(ctx, conversationID)
}

// MarkRead records a read receipt for the member.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.conversations.UpdateLastRead(ctx, conversationID, userID, time.Now().UTC())
}

func (s *ConversationService) authorize(ctx context.Context, conversationID, actorID string, action permissions.Action) ([]models.Member, error) {
	members, err := s.membersOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if d := permissions.Authorize(members, actorID, action); !d.Allowed {
		return nil, fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
	}
	return members, nil
}

func (s *ConversationService) requireMembership(ctx context.Context, conversationID, userID string) (*models.Member, error) {
	members, err := s.membersOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	member := findMember(members, userID)
	if member == nil {
		return nil, fmt.Errorf("not a member of this conversation: %w", domain.ErrForbidden)
	}
	return member, nil
}

func (s *ConversationService) membersOf(ctx context.Context, conversationID string) ([]models.Member, error) {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.Members(ctx, conversationID)
}

func createdText(t models.ConversationType) string {
	switch t {
	case models.ConversationGroup:
		return "You were added to a new group"
	case models.ConversationChannel:
		return "You were added to a new channel"
	default:
		return "New conversation started"
	}
}

func dedupe(ids []string, exclude string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
