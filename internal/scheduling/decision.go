package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/recruiter/internal/dedup"
)

// ErrNoContact is attached to decisions for candidates without an email address.
var ErrNoContact = errors.New("candidate has no contact email")

// Outcome tags a Decision.
type Outcome string

const (
	OutcomeScheduled        Outcome = "scheduled"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeSkippedNoContact Outcome = "skipped_no_contact"
	// OutcomeBookingFailed is counted together with OutcomeSkippedNoContact in the summary.
	OutcomeBookingFailed Outcome = "booking_failed"
	// OutcomeInvalidRecord marks an entry that could not be read or parsed.
	OutcomeInvalidRecord Outcome = "invalid_record"
)

// Decision is the result of processing one entry. Start, End, EventID and
// Link are set only for OutcomeScheduled.
type Decision struct {
	Source        string    `json:"source"`
	CandidateName string    `json:"candidate_name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	Start         time.Time `json:"start_time,omitzero"`
	End           time.Time `json:"end_time,omitzero"`
	EventID       string    `json:"event_id,omitempty"`
	Link          string    `json:"calendar_link,omitempty"`
	Err           error     `json:"-"`
}

// Summary aggregates the decisions of one run. It is written once per run.
type Summary struct {
	RunID                 string    `json:"run_id"`
	StartedAt             time.Time `json:"started_at"`
	Timestamp             time.Time `json:"timestamp"`
	Total                 int       `json:"total"`
	ScheduledCount        int       `json:"scheduled_count"`
	SkippedDuplicateCount int       `json:"skipped_duplicate_count"`
	SkippedNoContactCount int       `json:"skipped_no_contact_count"`
	BookingFailedCount    int       `json:"booking_failed_count"`
	ErrorCount            int       `json:"error_count"`
}

func (s *Summary) add(outcome Outcome) {
	s.Total++
	switch outcome {
	case OutcomeScheduled:
		s.ScheduledCount++
	case OutcomeSkippedDuplicate:
		s.SkippedDuplicateCount++
	case OutcomeSkippedNoContact:
		s.SkippedNoContactCount++
	case OutcomeBookingFailed:
		s.BookingFailedCount++
		s.SkippedNoContactCount++
	case OutcomeInvalidRecord:
		s.ErrorCount++
	}
}

// Result is what a run hands back to the caller.
type Result struct {
	Summary   Summary
	Decisions []Decision
}

// ScheduleRecord is the durable trace of one booked interview.
type ScheduleRecord struct {
	CandidateName string    `json:"candidate_name"`
	Email         string    `json:"email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	EventID       string    `json:"event_id"`
	CalendarLink  string    `json:"calendar_link"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookingRequest is a single calendar booking.
type BookingRequest struct {
	AttendeeEmail string
	Subject       string
	Description   string
	Start         time.Time
	End           time.Time
}

// BookingConfirmation identifies a created calendar event.
type BookingConfirmation struct {
	EventID string
	Link    string
}

// BookingSink turns a time window into a confirmed calendar event.
type BookingSink interface {
	Book(ctx context.Context, req BookingRequest) (*BookingConfirmation, error)
}

// Recorder persists booked interviews and run summaries.
type Recorder interface {
	Record(ctx context.Context, record ScheduleRecord) error
	Finalize(ctx context.Context, summary Summary) error
}

// ProcessedSet is the dedup view the scheduler needs. *dedup.Store implements it.
type ProcessedSet interface {
	Contains(ctx context.Context, stage dedup.Stage, key string) bool
	Record(ctx context.Context, stage dedup.Stage, key string) error
}
