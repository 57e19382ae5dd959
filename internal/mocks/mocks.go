package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"cypher-service/internal/models"
	"cypher-service/internal/payment"
	"cypher-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Create(ctx context.Context, conv models.Conversation, members []models.Member) error {
	args := m.Called(ctx, conv, members)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, id string) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) Members(ctx context.Context, id string) ([]models.Member, error) {
	args := m.Called(ctx, id)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *ConversationRepositoryMock) AddMembers(ctx context.Context, id string, members []models.Member) error {
	args := m.Called(ctx, id, members)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RemoveMembers(ctx context.Context, id string, userIDs []string) error {
	args := m.Called(ctx, id, userIDs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Rename(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetPinned(ctx context.Context, id, messageID string, pin bool) error {
	args := m.Called(ctx, id, messageID, pin)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetMemberFlags(ctx context.Context, id, userID string, canSend, canDeleteOwn, canLeave bool) error {
	args := m.Called(ctx, id, userID, canSend, canDeleteOwn, canLeave)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetMemberTier(ctx context.Context, id, userID string, tier models.Tier, capabilities []string) error {
	args := m.Called(ctx, id, userID, tier, capabilities)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) UpdateLastRead(ctx context.Context, id, userID string, at time.Time) error {
	args := m.Called(ctx, id, userID, at)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, conversationID, messageID string) (models.Message, error) {
	args := m.Called(ctx, conversationID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateBody(ctx context.Context, conversationID, messageID, body string) (models.Message, error) {
	args := m.Called(ctx, conversationID, messageID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteExpired(ctx context.Context, conversationID string, now time.Time) (int, error) {
	args := m.Called(ctx, conversationID, now)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) DeleteAllForConversation(ctx context.Context, conversationID string) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByTag(ctx context.Context, cypherTag string) (models.User, error) {
	args := m.Called(ctx, cypherTag)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, id, bio, avatar string, notificationsEnabled bool) error {
	args := m.Called(ctx, id, bio, avatar, notificationsEnabled)
	return args.Error(0)
}

func (m *UserRepositoryMock) Search(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	args := m.Called(ctx, prefix, limit)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, id string, online bool) error {
	args := m.Called(ctx, id, online)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetRole(ctx context.Context, id string, role models.UserRole) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetGrants(ctx context.Context, id string, freeChannels, freeGroups int) error {
	args := m.Called(ctx, id, freeChannels, freeGroups)
	return args.Error(0)
}

func (m *UserRepositoryMock) ConsumeFreeGrant(ctx context.Context, id string, kind models.ConversationType) (bool, error) {
	args := m.Called(ctx, id, kind)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) FilterNotifiable(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	var out []string
	if val := args.Get(0); val != nil {
		out = val.([]string)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserRepositoryMock) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) Verify(ctx context.Context, userID string, kind payment.Kind, currency string) (bool, error) {
	args := m.Called(ctx, userID, kind, currency)
	return args.Bool(0), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NotifierMock records fan-out calls without asserting on them by default.
type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, recipientIDs []string, senderID, text string) {
	m.Called(ctx, recipientIDs, senderID, text)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ payment.Verifier = (*VerifierMock)(nil)
