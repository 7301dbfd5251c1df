// Package calendar books interviews as Google Calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/scheduling"
)

// Scope is the OAuth scope needed to create events.
const Scope = gcal.CalendarEventsScope

// ErrBreakerOpen is returned without calling the API while the breaker is open.
var ErrBreakerOpen = errors.New("calendar circuit breaker is open")

// BreakerConfig tunes the circuit breaker around event creation.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure-threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// Options configures a Sink.
type Options struct {
	CalendarID string
	// SendUpdates is passed to the API: "all", "externalOnly" or "none".
	SendUpdates string
	// RequestTimeout bounds a single insert call.
	RequestTimeout time.Duration
	Breaker        BreakerConfig
}

type inserter interface {
	Insert(ctx context.Context, calendarID, sendUpdates string, event *gcal.Event) (*gcal.Event, error)
}

type serviceInserter struct {
	service *gcal.Service
}

func (s serviceInserter) Insert(ctx context.Context, calendarID, sendUpdates string, event *gcal.Event) (*gcal.Event, error) {
	call := s.service.Events.Insert(calendarID, event).Context(ctx)
	if sendUpdates != "" {
		call = call.SendUpdates(sendUpdates)
	}
	return call.Do()
}

// Sink implements scheduling.BookingSink.
type Sink struct {
	events  inserter
	opts    Options
	breaker *gobreaker.CircuitBreaker[*gcal.Event]
	logger  *zap.Logger
}

// New creates a Sink that talks to the Calendar API through httpClient.
func New(ctx context.Context, httpClient *http.Client, opts Options, l *zap.Logger, extra ...option.ClientOption) (*Sink, error) {
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)

	service, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	return newSink(serviceInserter{service: service}, opts, l), nil
}

func newSink(events inserter, opts Options, l *zap.Logger) *Sink {
	if strings.TrimSpace(opts.CalendarID) == "" {
		opts.CalendarID = "primary"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Breaker.FailureThreshold == 0 {
		opts.Breaker.FailureThreshold = 3
	}
	if opts.Breaker.Timeout <= 0 {
		opts.Breaker.Timeout = time.Minute
	}

	s := &Sink{
		events: events,
		opts:   opts,
		logger: logger.WithStage(l, "calendar"),
	}

	s.breaker = gobreaker.NewCircuitBreaker[*gcal.Event](gobreaker.Settings{
		Name:    "calendar:" + opts.CalendarID,
		Timeout: opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})

	return s
}

// Book creates the event. Times are sent in UTC.
func (s *Sink) Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.BookingConfirmation, error) {
	event := &gcal.Event{
		Summary:     req.Subject,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: []*gcal.EventAttendee{{Email: req.AttendeeEmail}},
		Reminders: &gcal.EventReminders{UseDefault: true},
	}

	created, err := s.breaker.Execute(func() (*gcal.Event, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()

		return s.events.Insert(callCtx, s.opts.CalendarID, s.opts.SendUpdates, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}
	if err != nil {
		return nil, fmt.Errorf("creating calendar event: %w", err)
	}

	return &scheduling.BookingConfirmation{
		EventID: created.Id,
		Link:    created.HtmlLink,
	}, nil
}
