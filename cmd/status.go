package cmd

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/dedup"
)

const topSkills = 10

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stage directories, tracking sets and candidate statistics",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(contextOf(cmd))
		defer e.close()

		for _, dir := range e.config.stageDirs() {
			count, err := countFiles(dir.path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				e.logger.Info("directory", zap.String("name", dir.name), zap.String("path", dir.path), zap.Bool("exists", false))
			case err != nil:
				e.logger.Warn("directory", zap.String("name", dir.name), zap.String("path", dir.path), zap.Error(err))
			default:
				e.logger.Info("directory", zap.String("name", dir.name), zap.String("path", dir.path), zap.Int("files", count))
			}
		}

		for _, stage := range dedup.Stages {
			e.logger.Info("tracking set", zap.String("stage", string(stage)), zap.Int("keys", e.store.Len(e.ctx, stage)))
		}

		entries, err := candidate.LoadDir(e.config.EnrichedDir())
		if err != nil {
			e.logger.Debug("no enriched candidates", zap.Error(err))
			return
		}

		stats := collectStats(entries)
		e.logger.Info("candidates",
			zap.Int("count", stats.Candidates),
			zap.Any("experience_levels", stats.Experience),
			zap.Strings("top_skills", stats.TopSkills),
		)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type stageDir struct {
	name string
	path string
}

func (c *Config) stageDirs() []stageDir {
	return []stageDir{
		{name: "resumes", path: c.ResumesDir()},
		{name: "text", path: c.TextDir()},
		{name: "parsed", path: c.ParsedDir()},
		{name: "enriched", path: c.EnrichedDir()},
		{name: "interviews", path: c.InterviewsDir()},
	}
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count, nil
}

type candidateStats struct {
	Candidates int
	Experience map[string]int
	TopSkills  []string
}

// collectStats counts experience buckets and the most frequent skills.
// Skills are compared case-insensitively and reported as "skill (count)".
func collectStats(entries []candidate.Entry) candidateStats {
	stats := candidateStats{Experience: map[string]int{}}

	type skillCount struct {
		name  string
		count int
	}
	skills := map[string]*skillCount{}

	for _, entry := range entries {
		if entry.Record == nil {
			continue
		}
		stats.Candidates++

		level := entry.Record.YearsOfExperience
		if strings.TrimSpace(level) == "" {
			level = "Unknown"
		}
		stats.Experience[level]++

		for _, skill := range entry.Record.Skills {
			key := strings.ToLower(strings.TrimSpace(skill))
			if key == "" {
				continue
			}
			if _, ok := skills[key]; !ok {
				skills[key] = &skillCount{name: strings.TrimSpace(skill)}
			}
			skills[key].count++
		}
	}

	ranked := make([]*skillCount, 0, len(skills))
	for _, s := range skills {
		ranked = append(ranked, s)
	}
	slices.SortFunc(ranked, func(a, b *skillCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})

	for i, s := range ranked {
		if i == topSkills {
			break
		}
		stats.TopSkills = append(stats.TopSkills, fmt.Sprintf("%s (%d)", s.name, s.count))
	}

	return stats
}
