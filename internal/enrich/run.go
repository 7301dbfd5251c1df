package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/logger"
)

// ProcessedSet tracks fingerprints of candidates that were already enriched.
type ProcessedSet interface {
	Contains(ctx context.Context, stage dedup.Stage, key string) bool
	Record(ctx context.Context, stage dedup.Stage, key string) error
}

// Result counts what a run did.
type Result struct {
	Files      int
	Outputs    []string
	Duplicates int
	Failed     int
}

// Runner enriches every candidate file of InputDir into OutputDir.
type Runner struct {
	inputDir  string
	outputDir string
	processed ProcessedSet
	logger    *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(inputDir, outputDir string, processed ProcessedSet, l *zap.Logger) *Runner {
	return &Runner{
		inputDir:  inputDir,
		outputDir: outputDir,
		processed: processed,
		logger:    logger.WithStage(l, "enrich"),
	}
}

// Run enriches candidates in file name order, keeping file names.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	entries, err := candidate.LoadDir(r.inputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", r.outputDir, err)
	}

	result := &Result{Files: len(entries)}

	for _, entry := range entries {
		log := r.logger.With(zap.String(logger.FieldSource, entry.Source))

		if entry.Err != nil {
			result.Failed++
			log.Error("reading candidate", zap.Error(entry.Err))
			continue
		}

		enriched := Candidate(entry.Record)
		fingerprint := candidate.Fingerprint(enriched)
		if r.processed.Contains(ctx, dedup.StageEnriched, fingerprint) {
			result.Duplicates++
			log.Info("skipping already enriched candidate", zap.String("candidate", enriched.DisplayName()))
			continue
		}

		data, err := json.MarshalIndent(enriched, "", "  ")
		if err != nil {
			result.Failed++
			log.Error("encoding candidate", zap.Error(err))
			continue
		}

		out := filepath.Join(r.outputDir, entry.Source)
		if err := renameio.WriteFile(out, data, 0o644); err != nil {
			result.Failed++
			log.Error("writing candidate", zap.Error(err))
			continue
		}

		if err := r.processed.Record(ctx, dedup.StageEnriched, fingerprint); err != nil {
			log.Error("recording enriched fingerprint", zap.Error(err))
		}

		result.Outputs = append(result.Outputs, out)
		log.Info("enriched profile",
			zap.String("candidate", enriched.DisplayName()),
			zap.String("linkedin", enriched.LinkedInURL),
			zap.Int("completeness", enriched.ProfileCompleteness),
		)
	}

	return result, nil
}
