package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/candidate"
	"github.com/spigell/recruiter/internal/dedup"
	"github.com/spigell/recruiter/internal/logger"
)

const stageName = "schedule"

// Scheduler books interviews for candidates one at a time, first in order wins.
// A Scheduler must not be run concurrently with another run over the same state.
type Scheduler struct {
	params    Params
	sink      BookingSink
	recorder  Recorder
	processed ProcessedSet
	logger    *zap.Logger
	now       func() time.Time
	newRunID  func() string
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

// New creates a Scheduler.
func New(params Params, sink BookingSink, recorder Recorder, processed ProcessedSet, opts ...Option) *Scheduler {
	s := &Scheduler{
		params:    params,
		sink:      sink,
		recorder:  recorder,
		processed: processed,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = logger.WithStage(s.logger, stageName)

	return s
}

// Run processes entries sorted by Source and returns one decision per entry.
// Invalid params are the only run-level failure; in that case nothing is
// booked and no summary is written. A Finalize error is returned together
// with the full result.
//
// A cancelled ctx stops the run before the next entry. The partial result is
// returned with ctx.Err() and no summary is written; bookings made so far are
// already in the processed set, so the next run continues after them.
func (s *Scheduler) Run(ctx context.Context, entries []candidate.Entry) (*Result, error) {
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	if s.sink == nil || s.recorder == nil || s.processed == nil {
		return nil, fmt.Errorf("scheduler requires a booking sink, a recorder and a processed set")
	}

	ordered := make([]candidate.Entry, len(entries))
	copy(ordered, entries)
	candidate.SortEntries(ordered)

	started := s.now().UTC()
	cursor := NewCursor(s.params, started)

	result := &Result{
		Summary: Summary{
			RunID:     s.newRunID(),
			StartedAt: started,
		},
		Decisions: make([]Decision, 0, len(ordered)),
	}

	log := logger.WithFields(s.logger, zap.String(logger.FieldRunID, result.Summary.RunID))
	log.Info("starting scheduling run",
		zap.Int("candidates", len(ordered)),
		zap.Time("first_slot", cursor.Current()),
	)

	for _, entry := range ordered {
		if err := ctx.Err(); err != nil {
			return result, s.interrupted(log, result, err)
		}

		decision := s.process(ctx, log, cursor, entry)
		result.Decisions = append(result.Decisions, decision)
		result.Summary.add(decision.Outcome)
	}

	if err := ctx.Err(); err != nil {
		return result, s.interrupted(log, result, err)
	}

	result.Summary.Timestamp = s.now().UTC()

	log.Info("scheduling run finished",
		zap.Int("scheduled", result.Summary.ScheduledCount),
		zap.Int("duplicates", result.Summary.SkippedDuplicateCount),
		zap.Int("skipped", result.Summary.SkippedNoContactCount),
		zap.Int("booking_failed", result.Summary.BookingFailedCount),
		zap.Int("errors", result.Summary.ErrorCount),
	)

	if err := s.recorder.Finalize(ctx, result.Summary); err != nil {
		return result, fmt.Errorf("finalizing run summary: %w", err)
	}

	return result, nil
}

func (s *Scheduler) interrupted(log *zap.Logger, result *Result, err error) error {
	log.Warn("scheduling run interrupted, summary is not written",
		zap.Int("processed", len(result.Decisions)),
		zap.Int("scheduled", result.Summary.ScheduledCount),
		zap.Error(err),
	)
	return fmt.Errorf("scheduling run interrupted: %w", err)
}

func (s *Scheduler) process(ctx context.Context, log *zap.Logger, cursor *Cursor, entry candidate.Entry) Decision {
	log = log.With(zap.String(logger.FieldSource, entry.Source))
	decision := Decision{Source: entry.Source}

	if entry.Err != nil || entry.Record == nil {
		decision.Outcome = OutcomeInvalidRecord
		decision.Err = entry.Err
		if decision.Err == nil {
			decision.Err = fmt.Errorf("empty candidate record")
		}
		log.Warn("skipping unreadable candidate", zap.Error(decision.Err))
		return decision
	}

	record := entry.Record
	decision.CandidateName = record.DisplayName()
	decision.Email = strings.TrimSpace(record.Email)
	log = log.With(zap.String("candidate", decision.CandidateName))

	if !record.HasContact() {
		decision.Outcome = OutcomeSkippedNoContact
		decision.Err = ErrNoContact
		log.Warn("skipping candidate without email")
		return decision
	}

	decision.Fingerprint = candidate.Fingerprint(record)
	if s.processed.Contains(ctx, dedup.StageScheduled, decision.Fingerprint) {
		decision.Outcome = OutcomeSkippedDuplicate
		log.Info("skipping already scheduled candidate")
		return decision
	}

	if cursor.WouldExceedBusinessHours() {
		cursor.RollToNextDay()
		log.Info("moving to next day", zap.String("day", cursor.Current().Format(time.DateOnly)))
	}

	start, end := cursor.Reserve()
	confirmation, err := s.sink.Book(ctx, BookingRequest{
		AttendeeEmail: decision.Email,
		Subject:       fmt.Sprintf("Interview: %s", decision.CandidateName),
		Description:   describe(record, decision.CandidateName, decision.Email),
		Start:         start,
		End:           end,
	})
	if err == nil && confirmation == nil {
		err = fmt.Errorf("booking sink returned no confirmation")
	}
	if err != nil {
		decision.Outcome = OutcomeBookingFailed
		decision.Err = err
		log.Warn("booking failed, slot left free", zap.Time("start", start), zap.Error(err))
		return decision
	}

	cursor.Advance(end)

	decision.Outcome = OutcomeScheduled
	decision.Start = start
	decision.End = end
	decision.EventID = confirmation.EventID
	decision.Link = confirmation.Link

	// The event exists now; its trace must be persisted even if the run is being cancelled.
	persistCtx := context.WithoutCancel(ctx)

	if err := s.recorder.Record(persistCtx, ScheduleRecord{
		CandidateName: decision.CandidateName,
		Email:         decision.Email,
		StartTime:     start,
		EndTime:       end,
		EventID:       confirmation.EventID,
		CalendarLink:  confirmation.Link,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Error("recording scheduled interview", zap.Error(err))
	}

	if err := s.processed.Record(persistCtx, dedup.StageScheduled, decision.Fingerprint); err != nil {
		log.Error("recording scheduled fingerprint", zap.Error(err))
	}

	log.Info("scheduled interview",
		zap.String("email", decision.Email),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("event_id", confirmation.EventID),
	)

	return decision
}

func describe(record *candidate.Record, name, email string) string {
	linkedIn := strings.TrimSpace(record.LinkedInURL)
	if linkedIn == "" {
		linkedIn = "N/A"
	}

	return fmt.Sprintf("Interview with %s\nEmail: %s\nLinkedIn: %s", name, email, linkedIn)
}
