package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/logger"
)

// ProcessedSet tracks fingerprints of candidates that were already parsed.
type ProcessedSet interface {
	Contains(ctx context.Context, stage dedup.Stage, key string) bool
	Record(ctx context.Context, stage dedup.Stage, key string) error
}

// ParseResult counts what a parse run did.
type ParseResult struct {
	Files      int
	Outputs    []string
	Existing   int
	Duplicates int
	Failed     int
}

// Parser runs a FieldExtractor over every .txt file of a directory and writes
// one JSON candidate per file.
type Parser struct {
	extractor FieldExtractor
	processed ProcessedSet
	inputDir  string
	outputDir string
	logger    *zap.Logger
}

// NewParser creates a Parser.
func NewParser(extractor FieldExtractor, processed ProcessedSet, inputDir, outputDir string, l *zap.Logger) *Parser {
	return &Parser{
		extractor: extractor,
		processed: processed,
		inputDir:  inputDir,
		outputDir: outputDir,
		logger:    logger.WithStage(l, "parse"),
	}
}

// Run parses files in name order. Files whose output already exists are not
// sent to the extractor again.
func (p *Parser) Run(ctx context.Context) (*ParseResult, error) {
	entries, err := os.ReadDir(p.inputDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", p.inputDir, err)
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", p.outputDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	result := &ParseResult{Files: len(names)}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := p.logger.With(zap.String(logger.FieldSource, name))
		out := filepath.Join(p.outputDir, strings.TrimSuffix(name, filepath.Ext(name))+".json")

		if _, err := os.Stat(out); err == nil {
			result.Existing++
			log.Debug("output already exists", zap.String("path", out))
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			result.Failed++
			log.Warn("checking output", zap.Error(err))
			continue
		}

		text, err := os.ReadFile(filepath.Join(p.inputDir, name))
		if err != nil {
			result.Failed++
			log.Warn("reading text", zap.Error(err))
			continue
		}

		record, err := p.extractor.Extract(ctx, string(text))
		if err != nil {
			result.Failed++
			log.Error("extracting candidate fields", zap.Error(err))
			continue
		}

		fingerprint := candidate.Fingerprint(record)
		if p.processed.Contains(ctx, dedup.StageParsed, fingerprint) {
			result.Duplicates++
			log.Info("skipping already parsed candidate", zap.String("candidate", record.DisplayName()))
			continue
		}

		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			result.Failed++
			log.Error("encoding candidate", zap.Error(err))
			continue
		}

		if err := renameio.WriteFile(out, data, 0o644); err != nil {
			result.Failed++
			log.Error("writing candidate", zap.Error(err))
			continue
		}

		if err := p.processed.Record(ctx, dedup.StageParsed, fingerprint); err != nil {
			log.Error("recording parsed fingerprint", zap.Error(err))
		}

		result.Outputs = append(result.Outputs, out)
		log.Info("saved structured data", zap.String("path", out), zap.String("candidate", record.DisplayName()))
	}

	return result, nil
}
