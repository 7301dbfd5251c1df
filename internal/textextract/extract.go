// Package textextract turns downloaded resumes into plain text files.
package textextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/utils"
)

const defaultWorkers = 4

// ProcessedSet tracks digests of text that was already extracted.
type ProcessedSet interface {
	Contains(ctx context.Context, stage dedup.Stage, key string) bool
	Record(ctx context.Context, stage dedup.Stage, key string) error
}

// Converter extracts the text body of a document.
type Converter func(path string) (string, error)

// Options configures an Extractor.
type Options struct {
	InputDir  string
	OutputDir string
	Workers   int
}

// Result counts what a run did.
type Result struct {
	Files       int
	Outputs     []string
	Duplicates  int
	Empty       int
	Unsupported int
	Failed      int
}

// Extractor converts every supported file of InputDir into OutputDir/<base>.txt.
type Extractor struct {
	opts      Options
	processed ProcessedSet
	convert   Converter
	logger    *zap.Logger
}

// New creates an Extractor backed by docconv.
func New(opts Options, processed ProcessedSet, l *zap.Logger) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	return &Extractor{
		opts:      opts,
		processed: processed,
		convert:   convertDocument,
		logger:    logger.WithStage(l, "extract"),
	}
}

// Supported reports whether the extension of name can be converted.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt":
		return true
	default:
		return false
	}
}

func convertDocument(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

type extraction struct {
	name string
	text string
	err  error
}

// Run converts files in parallel, then deduplicates and writes them in file
// name order.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	entries, err := os.ReadDir(e.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", e.opts.InputDir, err)
	}
	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", e.opts.OutputDir, err)
	}

	result := &Result{}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		result.Files++
		if !Supported(entry.Name()) {
			result.Unsupported++
			e.logger.Debug("skipping unsupported file", zap.String(logger.FieldSource, entry.Name()))
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	extracted := make([]extraction, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := e.convert(filepath.Join(e.opts.InputDir, name))
			extracted[i] = extraction{name: name, text: text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, item := range extracted {
		log := e.logger.With(zap.String(logger.FieldSource, item.name))

		if item.err != nil {
			result.Failed++
			log.Warn("extracting text", zap.Error(item.err))
			continue
		}

		if strings.TrimSpace(item.text) == "" {
			result.Empty++
			log.Warn("no text extracted")
			continue
		}

		hash := candidate.ContentHash(item.text)
		if e.processed.Contains(ctx, dedup.StageText, hash) {
			result.Duplicates++
			log.Info("skipping already extracted text")
			continue
		}

		out := filepath.Join(e.opts.OutputDir, strings.TrimSuffix(item.name, filepath.Ext(item.name))+".txt")
		if err := renameio.WriteFile(out, []byte(item.text), 0o644); err != nil {
			result.Failed++
			log.Error("writing text", zap.Error(err))
			continue
		}

		if err := e.processed.Record(ctx, dedup.StageText, hash); err != nil {
			log.Error("recording text digest", zap.Error(err))
		}

		result.Outputs = append(result.Outputs, out)
		log.Info("saved text", zap.String("path", out), zap.String("preview", utils.Preview(item.text, 80)))
	}

	return result, nil
}
