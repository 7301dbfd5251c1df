package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileBackend stores every stage as a JSON array in its own file under dir.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (f *FileBackend) Name() string { return "file" }

// Path returns the tracking file of stage.
func (f *FileBackend) Path(stage Stage) string {
	return filepath.Join(f.dir, stage.FileName())
}

func (f *FileBackend) Load(_ context.Context, stage Stage) ([]string, error) {
	data, err := os.ReadFile(f.Path(stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path(stage), err)
	}
	return keys, nil
}

// Save replaces the stage file atomically, so readers see either the old or
// the new set. The mode of an existing file is kept.
func (f *FileBackend) Save(_ context.Context, stage Stage, keys []string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if keys == nil {
		keys = []string{}
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}

	return renameio.WriteFile(f.Path(stage), data, 0o644)
}

func (f *FileBackend) Reset(_ context.Context, stage Stage) error {
	err := os.Remove(f.Path(stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileBackend) Close() error { return nil }
