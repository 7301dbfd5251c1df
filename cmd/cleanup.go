package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/dedup"
)

const (
	CleanupParsed     = "parsed"
	CleanupEnriched   = "enriched"
	CleanupInterviews = "interviews"
	CleanupResumes    = "resumes"
	CleanupAll        = "all"
)

var cleanupTypes = []string{CleanupParsed, CleanupEnriched, CleanupInterviews, CleanupResumes, CleanupAll}

var cleanupCmd = &cobra.Command{
	Use:       "cleanup [parsed|enriched|interviews|resumes|all]",
	Short:     "Remove stage outputs and reset the matching tracking sets",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: cleanupTypes,
	Run: func(cmd *cobra.Command, args []string) {
		kind := CleanupAll
		if len(args) == 1 {
			kind = args[0]
		}

		e := setup(contextOf(cmd))
		defer e.close()

		target := e.config.cleanupTarget(kind)

		e.acquire()

		for _, dir := range target.dirs {
			removed, err := removeFiles(dir)
			if err != nil {
				e.fatal("cleaning directory", zap.String("path", dir), zap.Error(err))
			}
			e.logger.Info("cleaned directory", zap.String("path", dir), zap.Int("removed", removed))
		}

		for _, stage := range target.stages {
			if err := e.store.Reset(e.ctx, stage); err != nil {
				e.fatal("resetting tracking set", zap.String("stage", string(stage)), zap.Error(err))
			}
			e.logger.Info("reset tracking set", zap.String("stage", string(stage)))
		}

		e.logger.Info("cleanup completed", zap.String("type", kind))
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

type cleanupTarget struct {
	dirs   []string
	stages []dedup.Stage
}

// cleanupTarget maps a cleanup type to the directories it empties and the
// tracking sets it resets, so that cleaned stages run again from scratch.
func (c *Config) cleanupTarget(kind string) cleanupTarget {
	var target cleanupTarget

	if kind == CleanupParsed || kind == CleanupAll {
		target.dirs = append(target.dirs, c.TextDir(), c.ParsedDir())
		target.stages = append(target.stages, dedup.StageText, dedup.StageParsed)
	}
	if kind == CleanupEnriched || kind == CleanupAll {
		target.dirs = append(target.dirs, c.EnrichedDir())
		target.stages = append(target.stages, dedup.StageEnriched)
	}
	if kind == CleanupInterviews || kind == CleanupAll {
		target.dirs = append(target.dirs, c.InterviewsDir())
		target.stages = append(target.stages, dedup.StageScheduled)
	}
	if kind == CleanupResumes || kind == CleanupAll {
		target.dirs = append(target.dirs, c.ResumesDir())
		target.stages = append(target.stages, dedup.StageEmails)
	}

	return target
}

// removeFiles deletes the regular files of dir and keeps subdirectories.
// A missing directory is not an error.
func removeFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}
