package pipeline

import (
	"context"
	"errors"

	"github.com/spigell/recruiter/internal/ai"
	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/enrich"
	"github.com/spigell/recruiter/internal/gmail"
	"github.com/spigell/recruiter/internal/scheduling"
	"github.com/spigell/recruiter/internal/textextract"
)

const (
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageParse    = "parse"
	StageEnrich   = "enrich"
	StageSchedule = "schedule"
)

// Names lists the stages in execution order.
var Names = []string{StageFetch, StageExtract, StageParse, StageEnrich, StageSchedule}

var errNotInitialized = errors.New("dependencies are not initialized: stage is not usable")

type toggle struct {
	enabled bool
	reason  string
}

func (t *toggle) Disable(reason string) {
	t.enabled = false
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return t.enabled }

func (t *toggle) Reason() string { return t.reason }

type fetcher interface {
	Fetch(ctx context.Context) (*gmail.Result, error)
}

type fetchStage struct {
	toggle
	fetcher fetcher
}

// NewFetch downloads resume attachments from Gmail.
func NewFetch(f fetcher) Stage {
	return &fetchStage{toggle: toggle{enabled: true}, fetcher: f}
}

func (s *fetchStage) Name() string { return StageFetch }

func (s *fetchStage) Validate() error {
	if s.fetcher == nil {
		return errNotInitialized
	}
	return nil
}

func (s *fetchStage) Run(ctx context.Context) (Step, error) {
	res, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Processed: res.Messages,
		Produced:  len(res.Downloaded),
		Skipped:   res.Duplicates + res.Ignored,
		Failed:    res.Failed,
	}, nil
}

type textExtractor interface {
	Run(ctx context.Context) (*textextract.Result, error)
}

type extractStage struct {
	toggle
	extractor textExtractor
}

// NewExtract converts downloaded resumes to text.
func NewExtract(e textExtractor) Stage {
	return &extractStage{toggle: toggle{enabled: true}, extractor: e}
}

func (s *extractStage) Name() string { return StageExtract }

func (s *extractStage) Validate() error {
	if s.extractor == nil {
		return errNotInitialized
	}
	return nil
}

func (s *extractStage) Run(ctx context.Context) (Step, error) {
	res, err := s.extractor.Run(ctx)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Processed: res.Files,
		Produced:  len(res.Outputs),
		Skipped:   res.Duplicates + res.Empty + res.Unsupported,
		Failed:    res.Failed,
	}, nil
}

type parser interface {
	Run(ctx context.Context) (*ai.ParseResult, error)
}

type parseStage struct {
	toggle
	parser parser
}

// NewParse extracts candidate fields from resume text with the LLM.
func NewParse(p parser) Stage {
	return &parseStage{toggle: toggle{enabled: true}, parser: p}
}

func (s *parseStage) Name() string { return StageParse }

func (s *parseStage) Validate() error {
	if s.parser == nil {
		return errNotInitialized
	}
	return nil
}

func (s *parseStage) Run(ctx context.Context) (Step, error) {
	res, err := s.parser.Run(ctx)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Processed: res.Files,
		Produced:  len(res.Outputs),
		Skipped:   res.Existing + res.Duplicates,
		Failed:    res.Failed,
	}, nil
}

type enricher interface {
	Run(ctx context.Context) (*enrich.Result, error)
}

type enrichStage struct {
	toggle
	enricher enricher
}

// NewEnrich fills in derived candidate fields.
func NewEnrich(e enricher) Stage {
	return &enrichStage{toggle: toggle{enabled: true}, enricher: e}
}

func (s *enrichStage) Name() string { return StageEnrich }

func (s *enrichStage) Validate() error {
	if s.enricher == nil {
		return errNotInitialized
	}
	return nil
}

func (s *enrichStage) Run(ctx context.Context) (Step, error) {
	res, err := s.enricher.Run(ctx)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Processed: res.Files,
		Produced:  len(res.Outputs),
		Skipped:   res.Duplicates,
		Failed:    res.Failed,
	}, nil
}

type interviewScheduler interface {
	Run(ctx context.Context, entries []candidate.Entry) (*scheduling.Result, error)
}

// ScheduleStage books interviews for the enriched candidates.
type ScheduleStage struct {
	toggle
	dir       string
	scheduler interviewScheduler
	result    *scheduling.Result
}

// NewSchedule schedules candidates read from dir.
func NewSchedule(dir string, s interviewScheduler) *ScheduleStage {
	return &ScheduleStage{toggle: toggle{enabled: true}, dir: dir, scheduler: s}
}

func (s *ScheduleStage) Name() string { return StageSchedule }

func (s *ScheduleStage) Validate() error {
	if s.scheduler == nil {
		return errNotInitialized
	}
	return nil
}

func (s *ScheduleStage) Run(ctx context.Context) (Step, error) {
	entries, err := candidate.LoadDir(s.dir)
	if err != nil {
		return Step{}, err
	}

	res, err := s.scheduler.Run(ctx, entries)
	s.result = res
	if res == nil {
		return Step{}, err
	}

	step := Step{
		Processed: res.Summary.Total,
		Produced:  res.Summary.ScheduledCount,
		Skipped:   res.Summary.SkippedDuplicateCount + res.Summary.SkippedNoContactCount,
		Failed:    res.Summary.ErrorCount,
	}
	return step, err
}

// Result returns the outcome of the last run, if any.
func (s *ScheduleStage) Result() *scheduling.Result {
	return s.result
}
