package syncstore

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Store is the derived real-time view of conversation messages. It is a
// projection of the document store, never a source of truth: entries are
// applied from the sync outbox in commit order.
type Store interface {
	PutMessage(ctx context.Context, conversationID, messageID, payload string) error
	RemoveMessage(ctx context.Context, conversationID, messageID string) error
	Clear(ctx context.Context, conversationID string) error
	Close() error
}

// NewFromURL builds a Redis-backed store, or a noop store when no URL is
// configured or the server is unreachable.
func NewFromURL(ctx context.Context, redisURL string) Store {
	if redisURL == "" {
		log.Printf("sync store disabled, using noop: empty redis url")
		return noopStore{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("sync store disabled, using noop: %v", err)
		return noopStore{}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("sync store disabled, using noop: %v", err)
		_ = client.Close()
		return noopStore{}
	}

	log.Printf("sync store connected addr=%s", opts.Addr)
	return &redisStore{client: client}
}

type redisStore struct {
	client *redis.Client
}

func messagesKey(conversationID string) string {
	return fmt.Sprintf("conversations:%s:messages", conversationID)
}

func (s *redisStore) PutMessage(ctx context.Context, conversationID, messageID, payload string) error {
	return s.client.HSet(ctx, messagesKey(conversationID), messageID, payload).Err()
}

func (s *redisStore) RemoveMessage(ctx context.Context, conversationID, messageID string) error {
	return s.client.HDel(ctx, messagesKey(conversationID), messageID).Err()
}

func (s *redisStore) Clear(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, messagesKey(conversationID)).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// Mode reports whether the store is live or noop, for startup logging.
func Mode(s Store) string {
	if _, ok := s.(*redisStore); ok {
		return "redis"
	}
	return "noop"
}

type noopStore struct{}

func (noopStore) PutMessage(ctx context.Context, conversationID, messageID, payload string) error {
	return nil
}

func (noopStore) RemoveMessage(ctx context.Context, conversationID, messageID string) error {
	return nil
}

func (noopStore) Clear(ctx context.Context, conversationID string) error { return nil }

func (noopStore) Close() error { return nil }
