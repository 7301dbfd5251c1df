package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    time.Duration
		limit   time.Duration
		attempt int
		expect  time.Duration
	}{
		{name: "zero attempt", base: time.Second, limit: time.Minute, attempt: 0, expect: 0},
		{name: "first attempt uses base", base: time.Second, limit: time.Minute, attempt: 1, expect: time.Second},
		{name: "doubles", base: time.Second, limit: time.Minute, attempt: 3, expect: 4 * time.Second},
		{name: "capped", base: 10 * time.Second, limit: 30 * time.Second, attempt: 5, expect: 30 * time.Second},
		{name: "no limit", base: time.Second, limit: 0, attempt: 4, expect: 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Backoff(tt.base, tt.limit, tt.attempt); got != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestWaitForHonoursContext(t *testing.T) {
	originalSleep := sleep
	release := make(chan struct{})
	sleep = func(time.Duration) { <-release }
	defer func() {
		close(release)
		sleep = originalSleep
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForNonPositive(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
