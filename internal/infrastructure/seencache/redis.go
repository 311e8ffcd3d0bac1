package seencache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps one set per conversation. Set semantics give the required
// idempotence for free: re-adding a seen message id changes nothing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("seencache: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("seencache: ping: %w", err)
	}

	return &RedisStore{client: c}, nil
}

var _ Store = (*RedisStore)(nil)

func key(conversationID string) string {
	return "seen:" + conversationID
}

func (s *RedisStore) Add(ctx context.Context, conversationID string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(messageIDs))
	for i, id := range messageIDs {
		members[i] = id
	}
	return s.client.SAdd(ctx, key(conversationID), members...).Err()
}

func (s *RedisStore) Members(ctx context.Context, conversationID string) ([]string, error) {
	return s.client.SMembers(ctx, key(conversationID)).Result()
}

func (s *RedisStore) Drop(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, key(conversationID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
