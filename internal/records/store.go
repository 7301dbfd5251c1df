// Package records keeps the durable trace of scheduled interviews and run summaries.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/scheduling"
)

const (
	summaryPrefix     = "summary_"
	recordTimeLayout  = "20060102T1504"
	summaryTimeLayout = "20060102T150405"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	unsafeChar = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)
)

// Store writes one JSON file per booked interview and one per run summary into dir.
// It implements scheduling.Recorder.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a Store rooted at dir.
func New(dir string, l *zap.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.WithStage(l, "records"),
	}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Slug turns a candidate name into a file name fragment.
func Slug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = whitespace.ReplaceAllString(slug, "_")
	slug = unsafeChar.ReplaceAllString(slug, "")
	if slug == "" {
		return "unknown"
	}
	return slug
}

// RecordFileName returns the file name of a record: the name slug plus the
// start time truncated to the minute.
func RecordFileName(record scheduling.ScheduleRecord) string {
	return fmt.Sprintf("%s_%s.json", Slug(record.CandidateName), record.StartTime.UTC().Format(recordTimeLayout))
}

// Record persists one booked interview.
func (s *Store) Record(_ context.Context, record scheduling.ScheduleRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating interviews directory: %w", err)
	}

	record.StartTime = record.StartTime.UTC()
	record.EndTime = record.EndTime.UTC()
	record.CreatedAt = record.CreatedAt.UTC()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule record: %w", err)
	}

	path := filepath.Join(s.dir, RecordFileName(record))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing schedule record %s: %w", path, err)
	}

	s.logger.Debug("saved schedule record", zap.String("path", path))

	return nil
}

// Finalize writes the run summary. Summaries are never overwritten.
func (s *Store) Finalize(_ context.Context, summary scheduling.Summary) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating interviews directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}

	name := fmt.Sprintf("%s%s_%s.json", summaryPrefix, summary.Timestamp.UTC().Format(summaryTimeLayout), summary.RunID)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating run summary %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing run summary %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing run summary %s: %w", path, err)
	}

	s.logger.Info("saved run summary", zap.String("path", path), zap.String(logger.FieldRunID, summary.RunID))

	return nil
}

// List returns every interview record, newest start time first.
// Files that cannot be decoded are logged and skipped.
func (s *Store) List() ([]scheduling.ScheduleRecord, error) {
	var records []scheduling.ScheduleRecord
	err := s.walk(false, func(path string, data []byte) {
		var record scheduling.ScheduleRecord
		if err := json.Unmarshal(data, &record); err != nil {
			s.logger.Warn("skipping unreadable schedule record", zap.String("path", path), zap.Error(err))
			return
		}
		records = append(records, record)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.After(records[j].StartTime)
	})

	return records, nil
}

// Summaries returns every run summary, newest first.
func (s *Store) Summaries() ([]scheduling.Summary, error) {
	var summaries []scheduling.Summary
	err := s.walk(true, func(path string, data []byte) {
		var summary scheduling.Summary
		if err := json.Unmarshal(data, &summary); err != nil {
			s.logger.Warn("skipping unreadable run summary", zap.String("path", path), zap.Error(err))
			return
		}
		summaries = append(summaries, summary)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	return summaries, nil
}

func (s *Store) walk(summaries bool, fn func(path string, data []byte)) error {
	files, err := s.files()
	if err != nil {
		return err
	}

	for _, name := range files {
		if strings.HasPrefix(name, summaryPrefix) != summaries {
			continue
		}

		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("reading file", zap.String("path", path), zap.Error(err))
			continue
		}
		fn(path, data)
	}

	return nil
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}
