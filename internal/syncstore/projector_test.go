package syncstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cypher-service/internal/models"
)

type outboxMock struct {
	mock.Mock
}

func (m *outboxMock) FetchBatch(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	var entries []models.OutboxEntry
	if val := args.Get(0); val != nil {
		entries = val.([]models.OutboxEntry)
	}
	return entries, args.Error(1)
}

func (m *outboxMock) Delete(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) PutMessage(ctx context.Context, conversationID, messageID, payload string) error {
	args := m.Called(ctx, conversationID, messageID, payload)
	return args.Error(0)
}

func (m *storeMock) RemoveMessage(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *storeMock) Clear(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *storeMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestProjectAppliesEntriesInOrder(t *testing.T) {
	outbox := new(outboxMock)
	store := new(storeMock)
	p := NewProjector(outbox, store, time.Second)

	outbox.On("FetchBatch", mock.Anything, defaultBatchSize).Return([]models.OutboxEntry{
		{ID: 1, ConversationID: "conv-1", MessageID: "msg-1", Op: models.OutboxPut, Payload: `{"id":"msg-1"}`},
		{ID: 2, ConversationID: "conv-1", MessageID: "msg-1", Op: models.OutboxRemove},
		{ID: 3, ConversationID: "conv-2", Op: models.OutboxClear},
	}, nil)
	store.On("PutMessage", mock.Anything, "conv-1", "msg-1", `{"id":"msg-1"}`).Return(nil)
	store.On("RemoveMessage", mock.Anything, "conv-1", "msg-1").Return(nil)
	store.On("Clear", mock.Anything, "conv-2").Return(nil)
	outbox.On("Delete", mock.Anything, []int64{1, 2, 3}).Return(nil)

	applied, err := p.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	store.AssertExpectations(t)
	outbox.AssertExpectations(t)
}

func TestProjectStopsAtFirstFailure(t *testing.T) {
	outbox := new(outboxMock)
	store := new(storeMock)
	p := NewProjector(outbox, store, time.Second)

	outbox.On("FetchBatch", mock.Anything, defaultBatchSize).Return([]models.OutboxEntry{
		{ID: 1, ConversationID: "conv-1", MessageID: "msg-1", Op: models.OutboxPut, Payload: `{}`},
		{ID: 2, ConversationID: "conv-1", MessageID: "msg-2", Op: models.OutboxPut, Payload: `{}`},
		{ID: 3, ConversationID: "conv-1", MessageID: "msg-3", Op: models.OutboxPut, Payload: `{}`},
	}, nil)
	store.On("PutMessage", mock.Anything, "conv-1", "msg-1", `{}`).Return(nil)
	store.On("PutMessage", mock.Anything, "conv-1", "msg-2", `{}`).Return(errors.New("redis down"))
	outbox.On("Delete", mock.Anything, []int64{1}).Return(nil)

	applied, err := p.Project(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, applied)
	// The failing entry and everything after it stay queued for the next poll.
	store.AssertNotCalled(t, "PutMessage", mock.Anything, "conv-1", "msg-3", `{}`)
}

func TestProjectAckFailureKeepsApplyError(t *testing.T) {
	outbox := new(outboxMock)
	store := new(storeMock)
	p := NewProjector(outbox, store, time.Second)

	outbox.On("FetchBatch", mock.Anything, defaultBatchSize).Return([]models.OutboxEntry{
		{ID: 1, ConversationID: "conv-1", MessageID: "msg-1", Op: models.OutboxPut, Payload: `{}`},
		{ID: 2, ConversationID: "conv-1", MessageID: "msg-2", Op: models.OutboxPut, Payload: `{}`},
	}, nil)
	store.On("PutMessage", mock.Anything, "conv-1", "msg-1", `{}`).Return(nil)
	store.On("PutMessage", mock.Anything, "conv-1", "msg-2", `{}`).Return(errors.New("redis down"))
	outbox.On("Delete", mock.Anything, []int64{1}).Return(errors.New("ack timeout"))

	_, err := p.Project(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "redis down")
	assert.ErrorContains(t, err, "ack timeout")
}

func TestProjectAcksUnknownOps(t *testing.T) {
	outbox := new(outboxMock)
	store := new(storeMock)
	p := NewProjector(outbox, store, time.Second)

	outbox.On("FetchBatch", mock.Anything, defaultBatchSize).Return([]models.OutboxEntry{
		{ID: 7, ConversationID: "conv-1", Op: "compact"},
	}, nil)
	outbox.On("Delete", mock.Anything, []int64{7}).Return(nil)

	applied, err := p.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestProjectEmptyBatch(t *testing.T) {
	outbox := new(outboxMock)
	store := new(storeMock)
	p := NewProjector(outbox, store, time.Second)

	outbox.On("FetchBatch", mock.Anything, defaultBatchSize).Return(nil, nil)

	applied, err := p.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	outbox.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
