// Package lock enforces that at most one run mutates the shared state at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another run is in progress")

// ErrLost is returned by Release when the lock expired or was taken over while held.
var ErrLost = errors.New("run lock was lost while held")

// Lock is a held run lock.
type Lock interface {
	// Lost is closed when the lock can no longer be trusted. It is nil for
	// locks that cannot be lost.
	Lost() <-chan struct{}
	Release(ctx context.Context) error
}

// FileLock is an advisory lock on a file. The kernel drops it when the
// holding process exits, so a crashed run does not block the next one.
type FileLock struct {
	flock *flock.Flock
}

// AcquireFile locks path without waiting. The file itself stays on disk.
func AcquireFile(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path, flock.SetPermissions(0o644))

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked by another process", ErrLocked, path)
	}

	return &FileLock{flock: fl}, nil
}

func (l *FileLock) Lost() <-chan struct{} { return nil }

// Release unlocks the file. Releasing twice is a no-op.
func (l *FileLock) Release(context.Context) error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.flock.Path(), err)
	}
	return nil
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key only if it still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a SETNX lock with a TTL. While held, the TTL is extended every
// third of its length; if that fails for a whole TTL, or another owner took
// the key, the lock reports itself lost.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration

	lost     chan struct{}
	lostOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// AcquireRedis takes key for ttl and keeps it alive until Release.
func AcquireRedis(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (*RedisLock, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("redis lock %s: ttl must be positive", key)
	}

	token := uuid.NewString()

	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: redis key %s is set", ErrLocked, key)
	}

	l := &RedisLock{
		client: client,
		key:    key,
		token:  token,
		ttl:    ttl,
		lost:   make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.keepAlive(ttl / 3)

	return l, nil
}

func (l *RedisLock) keepAlive(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastRefresh := time.Now()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		owned, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err == nil && owned == 1:
			lastRefresh = time.Now()
		case err == nil:
			l.markLost()
			return
		case time.Since(lastRefresh) >= l.ttl:
			l.markLost()
			return
		}
	}
}

func (l *RedisLock) markLost() {
	l.lostOnce.Do(func() { close(l.lost) })
}

// Lost is closed once the key is no longer ours.
func (l *RedisLock) Lost() <-chan struct{} {
	return l.lost
}

// Release stops the refresh and deletes the key if this lock still owns it.
// ErrLost is returned if ownership was lost before.
func (l *RedisLock) Release(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("releasing redis lock %s: %w", l.key, err)
	}

	select {
	case <-l.lost:
		return fmt.Errorf("%w: redis key %s", ErrLost, l.key)
	default:
		return nil
	}
}
