package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/pipeline"
	"github.com/spigell/recruiter/internal/scheduling"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run all stages: fetch, extract, parse, enrich and schedule",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindScheduleFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		skip, _ := cmd.Flags().GetStringSlice("skip")
		autoApprove, _ := cmd.Flags().GetBool("yes")
		runPipeline(contextOf(cmd), pipeline.Names, skip, autoApprove)
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringSlice("skip", nil, fmt.Sprintf("stages to skip, any of: %s", strings.Join(pipeline.Names, ", ")))
	pipelineCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before booking interviews")
	addScheduleFlags(pipelineCmd)

	for _, name := range []string{pipeline.StageFetch, pipeline.StageExtract, pipeline.StageParse, pipeline.StageEnrich} {
		rootCmd.AddCommand(stageCommand(name))
	}
}

// stageCommand runs a single stage through the pipeline runner.
func stageCommand(name string) *cobra.Command {
	descriptions := map[string]string{
		pipeline.StageFetch:   "Download resume attachments from Gmail",
		pipeline.StageExtract: "Convert downloaded resumes to plain text",
		pipeline.StageParse:   "Extract candidate fields from resume text with the LLM",
		pipeline.StageEnrich:  "Fill in derived candidate fields",
	}

	return &cobra.Command{
		Use:   name,
		Short: descriptions[name],
		Run: func(cmd *cobra.Command, _ []string) {
			runPipeline(contextOf(cmd), []string{name}, nil, true)
		},
	}
}

// runPipeline runs the requested stages in pipeline order. Dependencies are
// built for enabled stages only.
func runPipeline(ctx context.Context, names, skip []string, autoApprove bool) {
	e := setup(ctx)
	defer e.close()

	for _, name := range skip {
		if !slices.Contains(pipeline.Names, name) {
			e.fatal("unknown stage", zap.String("name", name), zap.Strings("available", pipeline.Names))
		}
	}

	enabled := func(name string) bool {
		return slices.Contains(names, name) && !slices.Contains(skip, name)
	}

	var params scheduling.Params
	if enabled(pipeline.StageSchedule) {
		var err error
		params, err = e.config.Schedule.Params()
		if err != nil {
			e.fatal("invalid schedule parameters", zap.Error(err))
		}
	}

	stages, schedule := e.buildStages(enabled, params)

	for _, status := range pipeline.Describe(stages) {
		e.logger.Debug("stage status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
		)
	}

	if schedule.IsEnabled() && !e.confirm(autoApprove, paramsFields(params, e.config.Calendar.CalendarID)...) {
		pipeline.DisableByName(stages, pipeline.StageSchedule, "declined at prompt")
	}

	e.acquire()

	reports, err := pipeline.Run(e.ctx, e.logger, stages)

	completed := make([]string, 0, len(reports))
	for _, report := range reports {
		completed = append(completed, report.Name)
	}

	if result := schedule.Result(); result != nil {
		logSummary(e.logger, result.Summary)
	}

	if err != nil {
		e.fatal("pipeline stopped", zap.Error(err), zap.Strings("completed", completed))
	}

	e.logger.Info("pipeline finished", zap.Strings("completed", completed))
}

func (e *env) buildStages(enabled func(string) bool, params scheduling.Params) ([]pipeline.Stage, *pipeline.ScheduleStage) {
	var (
		fetch    = pipeline.NewFetch(nil)
		extract  = pipeline.NewExtract(nil)
		parse    = pipeline.NewParse(nil)
		enrich   = pipeline.NewEnrich(nil)
		schedule = pipeline.NewSchedule(e.config.EnrichedDir(), nil)
	)

	if enabled(pipeline.StageFetch) {
		fetcher, err := e.newFetcher()
		if err != nil {
			e.fatal("preparing fetch stage", zap.Error(err))
		}
		fetch = pipeline.NewFetch(fetcher)
	}

	if enabled(pipeline.StageExtract) {
		extract = pipeline.NewExtract(e.newTextExtractor())
	}

	if enabled(pipeline.StageParse) {
		parser, err := e.newParser()
		if err != nil {
			e.fatal("preparing parse stage", zap.Error(err))
		}
		parse = pipeline.NewParse(parser)
	}

	if enabled(pipeline.StageEnrich) {
		enrich = pipeline.NewEnrich(e.newEnricher())
	}

	if enabled(pipeline.StageSchedule) {
		scheduler, err := e.newScheduler(params)
		if err != nil {
			e.fatal("preparing schedule stage", zap.Error(err))
		}
		schedule = pipeline.NewSchedule(e.config.EnrichedDir(), scheduler)
	}

	stages := []pipeline.Stage{fetch, extract, parse, enrich, schedule}
	for _, stage := range stages {
		if !enabled(stage.Name()) {
			stage.Disable("not requested")
		}
	}

	return stages, schedule
}

func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().Int("duration", 0, "interview duration in minutes")
	cmd.Flags().Int("buffer", 0, "minutes between interviews")
	cmd.Flags().Int("open-hour", 0, "first hour interviews may start")
	cmd.Flags().Int("close-hour", 0, "hour the working day ends")
	cmd.Flags().Bool("skip-weekends", true, "do not book on saturdays and sundays")
	cmd.Flags().String("start-date", "", "first day to book on, YYYY-MM-DD (default is tomorrow)")
}

// bindScheduleFlags binds the schedule flags of the running command only, so
// that commands sharing the flags do not override each other.
func bindScheduleFlags(cmd *cobra.Command) {
	for _, name := range []string{"duration", "buffer", "open-hour", "close-hour", "skip-weekends", "start-date"} {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			viper.BindPFlag("schedule."+name, flag)
		}
	}
}

func paramsFields(params scheduling.Params, calendarID string) []zap.Field {
	fields := []zap.Field{
		zap.String("calendar", calendarID),
		zap.Int("duration", params.DurationMinutes),
		zap.Int("buffer", params.BufferMinutes),
		zap.String("hours", fmt.Sprintf("%02d:00-%02d:00", params.OpenHour, params.CloseHour)),
		zap.Bool("skip_weekends", params.SkipWeekends),
	}
	if params.StartDate != nil {
		fields = append(fields, zap.String("start_date", params.StartDate.Format("2006-01-02")))
	}
	return fields
}

func logSummary(l *zap.Logger, summary scheduling.Summary) {
	l.Info("scheduling summary",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("scheduled", summary.ScheduledCount),
		zap.Int("skipped_duplicate", summary.SkippedDuplicateCount),
		zap.Int("skipped_no_contact", summary.SkippedNoContactCount),
		zap.Int("booking_failed", summary.BookingFailedCount),
		zap.Int("errors", summary.ErrorCount),
	)
}
