package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
	"cypher-service/internal/observability"
	"cypher-service/internal/permissions"
	"cypher-service/internal/repositories"
)

// Notifier delivers best-effort notifications to a set of recipients.
type Notifier interface {
	Notify(ctx context.Context, recipientIDs []string, senderID, text string)
}

// MessageService implements the message lifecycle: send, edit, soft delete
// and the expiry purge used by the cleanup sweep.
type MessageService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	notifier      Notifier
}

// NewMessageService constructs a MessageService.
func NewMessageService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, notifier Notifier) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		notifier:      notifier,
	}
}

// SendInput carries everything needed to post a message.
type SendInput struct {
	ConversationID string
	SenderID       string
	Body           string
	Type           models.MessageType
	TTL            time.Duration
}

// Send authorizes and persists a new message. A positive TTL arms the
// self-destruct timestamp at send time; a zero TTL means the message never
// expires. On any failure no message record is created.
func (s *MessageService) Send(ctx context.Context, in SendInput) (models.Message, error) {
	if in.Body == "" {
		return models.Message{}, fmt.Errorf("message body is required: %w", domain.ErrBadRequest)
	}
	if in.TTL < 0 {
		return models.Message{}, fmt.Errorf("ttl must not be negative: %w", domain.ErrBadRequest)
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		return models.Message{}, fmt.Errorf("unknown message type %q: %w", in.Type, domain.ErrBadRequest)
	}

	members, err := s.membersOf(ctx, in.ConversationID)
	if err != nil {
		return models.Message{}, err
	}
	if d := permissions.Authorize(members, in.SenderID, permissions.ActionSendMessage); !d.Allowed {
		return models.Message{}, fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		Type:           in.Type,
	}
	if in.TTL > 0 {
		expiry := time.Now().UTC().Add(in.TTL)
		msg.SelfDestructAt = &expiry
	}

	stored, err := s.messages.Create(ctx, msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.notifier.Notify(ctx, memberIDs(members), in.SenderID, "New message")
	return stored, nil
}

// List returns the conversation's messages for a member, with deleted
// messages redacted.
func (s *MessageService) List(ctx context.Context, conversationID, requesterID string) ([]models.Message, error) {
	members, err := s.membersOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if findMember(members, requesterID) == nil {
		return nil, fmt.Errorf("not a member of this conversation: %w", domain.ErrForbidden)
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Redacted()
	}
	return out, nil
}

// Edit replaces the body of the sender's own message. Editing never touches
// the self-destruct timestamp, and a soft-deleted message cannot be edited.
func (s *MessageService) Edit(ctx context.Context, conversationID, messageID, senderID, body string) (models.Message, error) {
	if body == "" {
		return models.Message{}, fmt.Errorf("message body is required: %w", domain.ErrBadRequest)
	}

	msg, err := s.messages.Get(ctx, conversationID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != senderID {
		return models.Message{}, fmt.Errorf("only the sender may edit a message: %w", domain.ErrForbidden)
	}
	if msg.Deleted {
		return models.Message{}, fmt.Errorf("message is deleted: %w", domain.ErrConflict)
	}

	return s.messages.UpdateBody(ctx, conversationID, messageID, body)
}

// SoftDelete marks the sender's own message as deleted. Deleting an already
// deleted message, or one a concurrent purge removed, is a no-op.
func (s *MessageService) SoftDelete(ctx context.Context, conversationID, messageID, senderID string) error {
	members, err := s.membersOf(ctx, conversationID)
	if err != nil {
		return err
	}
	if d := permissions.Authorize(members, senderID, permissions.ActionDeleteOwnMessage); !d.Allowed {
		return fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
	}

	msg, err := s.messages.Get(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != senderID {
		return fmt.Errorf("only the sender may delete a message: %w", domain.ErrForbidden)
	}
	if msg.Deleted {
		return nil
	}

	err = s.messages.SoftDelete(ctx, conversationID, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		// Lost a race with the expiry purge; the message is gone either way.
		return nil
	}
	return err
}

// PurgeExpired walks every conversation and permanently removes messages
// whose self-destruct time has passed. A failing conversation is logged and
// skipped so one bad partition never blocks the rest of the sweep.
func (s *MessageService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.conversations.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list conversations: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := s.messages.DeleteExpired(ctx, id, now)
		if err != nil {
			log.Printf("purge expired: conversation=%s failed: %v", id, err)
			observability.IncSweepFailure()
			continue
		}
		total += n
	}
	return total, nil
}

func (s *MessageService) membersOf(ctx context.Context, conversationID string) ([]models.Member, error) {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.Members(ctx, conversationID)
}

func findMember(members []models.Member, userID string) *models.Member {
	for i := range members {
		if members[i].UserID == userID {
			return &members[i]
		}
	}
	return nil
}

func memberIDs(members []models.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}
