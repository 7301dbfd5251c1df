package dedup

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStoreRecordIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, zap.NewNop())

	if store.Contains(ctx, StageScheduled, "abc") {
		t.Fatal("empty store must not contain keys")
	}

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, StageScheduled, "abc"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if !store.Contains(ctx, StageScheduled, "abc") {
		t.Fatal("expected key to be recorded")
	}
	if store.Contains(ctx, StageParsed, "abc") {
		t.Fatal("stages must not share keys")
	}
	if backend.Saves != 1 {
		t.Fatalf("expected a single persist, got %d", backend.Saves)
	}
	if store.Len(ctx, StageScheduled) != 1 {
		t.Fatalf("expected 1 key, got %d", store.Len(ctx, StageScheduled))
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewFileBackend(t.TempDir())

	first := NewStore(backend, zap.NewNop())
	if err := first.Record(ctx, StageEmails, "msg-1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := first.Record(ctx, StageEmails, "msg-2"); err != nil {
		t.Fatalf("record: %v", err)
	}

	second := NewStore(backend, zap.NewNop())
	set := second.Load(ctx, StageEmails)
	if len(set) != 2 {
		t.Fatalf("expected 2 keys after reload, got %d", len(set))
	}
	if _, ok := set["msg-1"]; !ok {
		t.Fatal("expected msg-1 after reload")
	}
}

func TestStoreKeepsInMemoryInsertWhenPersistFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.SaveErr = errors.New("disk full")

	core, observed := observer.New(zapcore.WarnLevel)
	store := NewStore(backend, zap.New(core))

	err := store.Record(ctx, StageScheduled, "abc")
	if err == nil {
		t.Fatal("expected persist error")
	}
	if !errors.Is(err, backend.SaveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if !store.Contains(ctx, StageScheduled, "abc") {
		t.Fatal("in-memory insert must survive a failed persist")
	}
	if observed.Len() != 1 {
		t.Fatalf("expected one warning, got %d", observed.Len())
	}
}

func TestStoreTreatsUnreadableStateAsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.LoadErr = errors.New("corrupt")

	store := NewStore(backend, zap.NewNop())
	if got := store.Load(ctx, StageText); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}

	backend.LoadErr = nil
	if err := store.Record(ctx, StageText, "hash"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.Contains(ctx, StageText, "hash") {
		t.Fatal("expected recorded key")
	}
}

func TestStoreLoadReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), nil)

	set := store.Load(ctx, StageParsed)
	set["sneaky"] = struct{}{}

	if store.Contains(ctx, StageParsed, "sneaky") {
		t.Fatal("mutating a loaded set must not change the store")
	}
}

func TestStoreReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewFileBackend(t.TempDir())
	store := NewStore(backend, zap.NewNop())

	if err := store.Record(ctx, StageEnriched, "abc"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Reset(ctx, StageEnriched); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if store.Contains(ctx, StageEnriched, "abc") {
		t.Fatal("expected reset to forget keys")
	}

	reloaded := NewStore(backend, zap.NewNop())
	if reloaded.Len(ctx, StageEnriched) != 0 {
		t.Fatal("expected reset to clear persisted keys")
	}

	// Resetting an absent stage is fine.
	if err := store.Reset(ctx, StageEmails); err != nil {
		t.Fatalf("reset absent stage: %v", err)
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	stage, err := ParseStage(" Scheduled ")
	if err != nil || stage != StageScheduled {
		t.Fatalf("expected scheduled stage, got %q (%v)", stage, err)
	}

	if _, err := ParseStage("interviews"); err == nil {
		t.Fatal("expected error for unknown stage")
	}

	if StageScheduled.FileName() != "scheduled_candidates.json" {
		t.Fatalf("unexpected file name %q", StageScheduled.FileName())
	}
	if Stage("custom").FileName() != "processed_custom.json" {
		t.Fatalf("unexpected file name %q", Stage("custom").FileName())
	}
}
