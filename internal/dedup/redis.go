package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "recruiter:processed"

// RedisBackend keeps one Redis set per stage.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps client. Keys are named <prefix>:<stage>.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(stage Stage) string {
	return fmt.Sprintf("%s:%s", b.prefix, stage)
}

func (b *RedisBackend) Load(ctx context.Context, stage Stage) ([]string, error) {
	keys, err := b.client.SMembers(ctx, b.key(stage)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return keys, err
}

// Save adds all keys with a single SADD, which Redis applies atomically.
func (b *RedisBackend) Save(ctx context.Context, stage Stage, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	members := make([]any, 0, len(keys))
	for _, key := range keys {
		members = append(members, key)
	}

	return b.client.SAdd(ctx, b.key(stage), members...).Err()
}

func (b *RedisBackend) Reset(ctx context.Context, stage Stage) error {
	return b.client.Del(ctx, b.key(stage)).Err()
}

// Close is a no-op: the client is shared with the run lock and owned by the caller.
func (b *RedisBackend) Close() error { return nil }
