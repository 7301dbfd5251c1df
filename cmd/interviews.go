package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/records"
	"github.com/spigell/recruiter/internal/scheduling"
)

var interviewsCmd = &cobra.Command{
	Use:   "interviews",
	Short: "Inspect scheduled interviews",
}

var interviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled interviews, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(contextOf(cmd))
		defer e.close()

		store := e.newRecords()
		list, err := store.List()
		if err != nil {
			e.fatal("listing interviews", zap.Error(err))
		}

		for _, record := range list {
			e.logger.Info("interview",
				zap.String("candidate", record.CandidateName),
				zap.String("email", record.Email),
				zap.Time("start", record.StartTime),
				zap.Time("end", record.EndTime),
				zap.String("link", record.CalendarLink),
			)
		}

		e.logger.Info("scheduled interviews", zap.Int("count", len(list)), zap.String("dir", store.Dir()))

		if summary := latestSummary(e, store); summary != nil {
			logSummary(e.logger, *summary)
		}
	},
}

var interviewsExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export scheduled interviews to an xlsx workbook",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup(contextOf(cmd))
		defer e.close()

		store := e.newRecords()
		list, err := store.List()
		if err != nil {
			e.fatal("listing interviews", zap.Error(err))
		}

		path := filepath.Join(e.config.DataDir, "interviews_"+time.Now().UTC().Format("20060102T150405")+".xlsx")
		if len(args) == 1 {
			path = args[0]
		}

		written, err := records.Export(path, list, latestSummary(e, store))
		if err != nil {
			e.fatal("exporting interviews", zap.Error(err))
		}

		e.logger.Info("exported interviews", zap.String("path", written), zap.Int("count", len(list)))
	},
}

func init() {
	interviewsCmd.AddCommand(interviewsListCmd, interviewsExportCmd)
	rootCmd.AddCommand(interviewsCmd)
}

func latestSummary(e *env, store *records.Store) *scheduling.Summary {
	summaries, err := store.Summaries()
	if err != nil {
		e.logger.Warn("reading run summaries", zap.Error(err))
		return nil
	}
	if len(summaries) == 0 {
		return nil
	}
	return &summaries[0]
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
