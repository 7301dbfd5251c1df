package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spigell/recruiter/internal/pipeline"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Book interviews for enriched candidates in Google Calendar",
	Long: `Book one interview per enriched candidate, in file name order.

Candidates already scheduled by an earlier run are skipped, candidates without
an email address are never booked. A summary of the run is written next to the
interview records.`,
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindScheduleFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		autoApprove, _ := cmd.Flags().GetBool("yes")
		runPipeline(contextOf(cmd), []string{pipeline.StageSchedule}, nil, autoApprove)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before booking interviews")
	addScheduleFlags(scheduleCmd)
}
