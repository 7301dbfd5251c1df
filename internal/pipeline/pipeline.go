// Package pipeline runs the recruiting stages in order: fetch, extract, parse,
// enrich and schedule.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stage is one step of the pipeline.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Run(ctx context.Context) (Step, error)
}

// Step describes the result of executing a stage.
type Step struct {
	Processed int
	Produced  int
	Skipped   int
	Failed    int
}

// Report pairs a stage with its step.
type Report struct {
	Name string
	Step Step
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// DisableByName marks a stage with the provided name as disabled while keeping it in the list.
func DisableByName(stages []Stage, name, reason string) bool {
	found := false
	for _, stage := range stages {
		if stage.Name() == name {
			stage.Disable(reason)
			found = true
		}
	}
	return found
}

// Run validates every enabled stage, then executes them sequentially and stops
// at the first failing stage. Reports of the stages that ran are returned
// even on failure.
func Run(ctx context.Context, logger *zap.Logger, stages []Stage) ([]Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, stage := range stages {
		if !stage.IsEnabled() {
			continue
		}
		if err := stage.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", stage.Name(), err)
		}
	}

	reports := make([]Report, 0, len(stages))
	for i, stage := range stages {
		if !stage.IsEnabled() {
			logger.Debug("stage disabled", zap.String("name", stage.Name()))
			continue
		}

		logger.Info("starting stage",
			zap.String("name", stage.Name()),
			zap.String("position", fmt.Sprintf("%d/%d", i+1, len(stages))),
		)

		info, err := stage.Run(ctx)
		if err != nil {
			return reports, fmt.Errorf("%s: %w", stage.Name(), err)
		}

		logger.Info("pipeline step",
			zap.String("name", stage.Name()),
			zap.Int("processed", info.Processed),
			zap.Int("produced", info.Produced),
			zap.Int("skipped", info.Skipped),
			zap.Int("failed", info.Failed),
		)

		reports = append(reports, Report{Name: stage.Name(), Step: info})
	}

	return reports, nil
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, stage := range stages {
		status := Status{Name: stage.Name(), Enabled: stage.IsEnabled()}
		if reporter, ok := stage.(interface{ Reason() string }); ok {
			status.Reason = reporter.Reason()
		}
		statuses = append(statuses, status)
	}
	return statuses
}
