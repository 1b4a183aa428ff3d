package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisDeliveryDedup flags webhook deliveries already ingested. It is a fast
// path only; losing a key just means one extra round trip to the store's
// uniqueness constraint.
type RedisDeliveryDedup struct {
	client *redis.Client
}

// NewRedisDeliveryDedup creates the delivery dedup cache adapter.
func NewRedisDeliveryDedup(client *redis.Client) *RedisDeliveryDedup {
	return &RedisDeliveryDedup{client: client}
}

func (s *RedisDeliveryDedup) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, "loyalty:delivery:"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisDeliveryDedup) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.client.Set(ctx, "loyalty:delivery:"+key, "1", ttl).Err()
}
