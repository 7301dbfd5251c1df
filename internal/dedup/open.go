package dedup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures a Backend.
type Options struct {
	// Backend is one of "file" (default), "sqlite", "redis" or "memory".
	Backend string
	// Dir holds the tracking files of the file backend.
	Dir string
	// SQLitePath defaults to Dir/recruiter.db.
	SQLitePath string
	// Redis is required by the redis backend.
	Redis       *redis.Client
	RedisPrefix string
}

// Open builds the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "file":
		return NewFileBackend(opts.Dir), nil
	case "sqlite":
		path := strings.TrimSpace(opts.SQLitePath)
		if path == "" {
			path = filepath.Join(opts.Dir, "recruiter.db")
		}
		return NewSQLiteBackend(ctx, path)
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
		return NewRedisBackend(opts.Redis, opts.RedisPrefix), nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
