package scheduling

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultDurationMinutes = 45
	DefaultBufferMinutes   = 15
	DefaultOpenHour        = 9
	DefaultCloseHour       = 17
)

// Params are the caller-supplied knobs of one scheduling run.
type Params struct {
	DurationMinutes int  `json:"duration_minutes" validate:"gt=0"`
	BufferMinutes   int  `json:"buffer_minutes" validate:"gte=0"`
	OpenHour        int  `json:"open_hour" validate:"gte=0,lte=23"`
	CloseHour       int  `json:"close_hour" validate:"gtfield=OpenHour,lte=24"`
	SkipWeekends    bool `json:"skip_weekends"`
	// StartDate is the first day to book on. Nil means the day after the run starts (UTC).
	StartDate *time.Time `json:"start_date,omitempty"`
}

// DefaultParams returns 45 minute interviews with a 15 minute buffer,
// between 9 and 17 on weekdays.
func DefaultParams() Params {
	return Params{
		DurationMinutes: DefaultDurationMinutes,
		BufferMinutes:   DefaultBufferMinutes,
		OpenHour:        DefaultOpenHour,
		CloseHour:       DefaultCloseHour,
		SkipWeekends:    true,
	}
}

var validate = validator.New()

// Validate checks the params. An interview must fit between open and close,
// otherwise the cursor would roll forever.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid schedule params: %w", err)
	}

	if float64(p.OpenHour)+float64(p.DurationMinutes)/60 >= float64(p.CloseHour) {
		return fmt.Errorf("invalid schedule params: a %d minute interview does not fit in work hours %d-%d",
			p.DurationMinutes, p.OpenHour, p.CloseHour)
	}

	return nil
}

func (p Params) duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

func (p Params) buffer() time.Duration {
	return time.Duration(p.BufferMinutes) * time.Minute
}
