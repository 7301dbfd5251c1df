package scheduling

import "time"

// Cursor tracks the next free interview start. It only moves forward.
type Cursor struct {
	params  Params
	current time.Time
}

// NewCursor returns a cursor initialized from params.StartDate, or from the
// day after now when no start date is set.
func NewCursor(params Params, now time.Time) *Cursor {
	c := &Cursor{params: params}
	c.Initialize(params.StartDate, now)
	return c
}

// Initialize places the cursor at the open hour of start, or of the day after
// now when start is nil, skipping weekends if enabled.
func (c *Cursor) Initialize(start *time.Time, now time.Time) {
	var day time.Time
	if start != nil {
		day = *start
	} else {
		day = now.UTC().AddDate(0, 0, 1)
	}

	y, m, d := day.Date()
	c.current = time.Date(y, m, d, c.params.OpenHour, 0, 0, 0, time.UTC)
	c.skipWeekend()
}

// Current returns the next candidate start time.
func (c *Cursor) Current() time.Time {
	return c.current
}

// Reserve returns the window starting at the cursor. The cursor is not moved.
func (c *Cursor) Reserve() (time.Time, time.Time) {
	return c.current, c.current.Add(c.params.duration())
}

// WouldExceedBusinessHours reports whether an interview starting at the cursor
// reaches the close hour. The check works on fractional hours, so an interview
// ending exactly at close does not fit.
func (c *Cursor) WouldExceedBusinessHours() bool {
	end := float64(c.current.Hour()) + float64(c.current.Minute()+c.params.DurationMinutes)/60
	return end >= float64(c.params.CloseHour)
}

// RollToNextDay moves the cursor to the open hour of the following day.
func (c *Cursor) RollToNextDay() {
	y, m, d := c.current.Date()
	c.current = time.Date(y, m, d+1, c.params.OpenHour, 0, 0, 0, time.UTC)
	c.skipWeekend()
}

// Advance moves the cursor past a booked interview that ends at end.
func (c *Cursor) Advance(end time.Time) {
	next := end.UTC().Add(c.params.buffer())
	if next.Before(c.current) {
		return
	}

	c.current = next

	// The buffer may cross midnight when close is 24.
	if c.current.Hour() < c.params.OpenHour {
		y, m, d := c.current.Date()
		c.current = time.Date(y, m, d, c.params.OpenHour, 0, 0, 0, time.UTC)
	}
	c.skipWeekend()
}

func (c *Cursor) skipWeekend() {
	if !c.params.SkipWeekends {
		return
	}

	for isWeekend(c.current) {
		c.current = c.current.AddDate(0, 0, 1)
	}
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}
