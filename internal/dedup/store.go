package dedup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Backend persists processed sets. Save replaces the persisted set of a stage
// with keys; implementations must not expose a partially written set.
type Backend interface {
	Name() string
	Load(ctx context.Context, stage Stage) ([]string, error)
	Save(ctx context.Context, stage Stage, keys []string) error
	Reset(ctx context.Context, stage Stage) error
	Close() error
}

// Store caches processed sets in memory on top of a Backend. Sets are loaded
// lazily on first use of a stage.
//
// Store is safe for concurrent use inside one process. It does not coordinate
// with other processes: callers must hold the run lock (see package lock).
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu   sync.Mutex
	sets map[Stage]map[string]struct{}
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		sets:    make(map[Stage]map[string]struct{}),
	}
}

// Load returns a copy of the processed set for stage. Missing or unreadable
// state is logged and treated as an empty set.
func (s *Store) Load(ctx context.Context, stage Stage) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadLocked(ctx, stage)
	copied := make(map[string]struct{}, len(set))
	for key := range set {
		copied[key] = struct{}{}
	}
	return copied
}

// Contains reports whether key was already processed in stage.
func (s *Store) Contains(ctx context.Context, stage Stage, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.loadLocked(ctx, stage)[key]
	return ok
}

// Record marks key as processed and persists the stage set. Recording a key
// twice is a no-op. When persisting fails the key stays recorded in memory
// for the rest of the process and the error is returned.
func (s *Store) Record(ctx context.Context, stage Stage, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadLocked(ctx, stage)
	if _, ok := set[key]; ok {
		return nil
	}
	set[key] = struct{}{}

	if err := s.backend.Save(ctx, stage, sortedKeys(set)); err != nil {
		s.logger.Warn("persisting processed set failed",
			zap.String("stage", string(stage)),
			zap.String("backend", s.backend.Name()),
			zap.Error(err),
		)
		return fmt.Errorf("persist %s set: %w", stage, err)
	}

	return nil
}

// Len returns the number of processed keys in stage.
func (s *Store) Len(ctx context.Context, stage Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.loadLocked(ctx, stage))
}

// Reset forgets every key of stage, in memory and in the backend.
func (s *Store) Reset(ctx context.Context, stage Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[stage] = make(map[string]struct{})
	if err := s.backend.Reset(ctx, stage); err != nil {
		return fmt.Errorf("reset %s set: %w", stage, err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) loadLocked(ctx context.Context, stage Stage) map[string]struct{} {
	if set, ok := s.sets[stage]; ok {
		return set
	}

	set := make(map[string]struct{})
	keys, err := s.backend.Load(ctx, stage)
	if err != nil {
		s.logger.Warn("processed set is unreadable, starting empty",
			zap.String("stage", string(stage)),
			zap.String("backend", s.backend.Name()),
			zap.Error(err),
		)
		keys = nil
	}

	for _, key := range keys {
		set[key] = struct{}{}
	}
	s.sets[stage] = set

	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
