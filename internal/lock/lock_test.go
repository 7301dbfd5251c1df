package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFileLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "recruiter.lock")

	first, err := AcquireFile(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if first.Lost() != nil {
		t.Fatalf("file lock cannot be lost")
	}

	if _, err := AcquireFile(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}

	second, err := AcquireFile(path)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Releasing twice is harmless.
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestFileLockLeftByCrashedRunDoesNotBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".recruiter.lock")

	// A lock file without a live holder, as left behind by a killed process.
	if err := os.WriteFile(path, []byte("pid 4242\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	held, err := AcquireFile(path)
	if err != nil {
		t.Fatalf("expected a stale lock file to be reusable, got %v", err)
	}
	if err := held.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return server, client
}

func TestRedisLockIsExclusive(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	key := "recruiter:lock"

	first, err := AcquireRedis(ctx, client, key, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := AcquireRedis(ctx, client, key, time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if n := client.Exists(ctx, key).Val(); n != 0 {
		t.Fatalf("expected key to be deleted, exists=%d", n)
	}

	second, err := AcquireRedis(ctx, client, key, time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRedisLockIsRefreshedWhileHeld(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()
	key := "recruiter:lock"
	ttl := 300 * time.Millisecond

	held, err := AcquireRedis(ctx, client, key, ttl)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Without the refresh the key would expire after the second step.
	for i := 0; i < 3; i++ {
		server.FastForward(ttl / 2)
		waitFor(t, "ttl refresh", func() bool { return server.TTL(key) == ttl })
	}

	if _, err := AcquireRedis(ctx, client, key, ttl); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected the lock to be kept past its ttl, got %v", err)
	}

	select {
	case <-held.Lost():
		t.Fatalf("lock must not be reported lost")
	default:
	}

	if err := held.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestRedisLockReportsTakeover(t *testing.T) {
	server, client := newRedis(t)
	ctx := context.Background()
	key := "recruiter:lock"

	held, err := AcquireRedis(ctx, client, key, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := server.Set(key, "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}

	select {
	case <-held.Lost():
	case <-time.After(3 * time.Second):
		t.Fatalf("expected the lock to be reported lost")
	}

	if err := held.Release(ctx); !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost, got %v", err)
	}
	if got, _ := server.Get(key); got != "someone-else" {
		t.Fatalf("release must not delete a key owned by another run, got %q", got)
	}
}
