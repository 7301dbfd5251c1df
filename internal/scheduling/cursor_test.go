package scheduling

import (
	"testing"
	"time"
)

// 2024-01-08 is a Monday.
func day(d, hour, minute int) time.Time {
	return time.Date(2024, time.January, d, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestCursorInitialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		start        *time.Time
		now          time.Time
		skipWeekends bool
		want         time.Time
	}{
		{
			name:         "explicit monday",
			start:        ptr(day(8, 14, 30)),
			now:          day(1, 0, 0),
			want:         day(8, 9, 0),
			skipWeekends: true,
		},
		{
			name:         "explicit sunday skips to monday",
			start:        ptr(day(14, 0, 0)),
			skipWeekends: true,
			want:         day(15, 9, 0),
		},
		{
			name:         "explicit saturday kept without weekend skip",
			start:        ptr(day(13, 0, 0)),
			skipWeekends: false,
			want:         day(13, 9, 0),
		},
		{
			name:         "tomorrow by default",
			now:          day(9, 18, 42),
			skipWeekends: true,
			want:         day(10, 9, 0),
		},
		{
			name:         "friday evening starts monday",
			now:          day(12, 15, 0),
			skipWeekends: true,
			want:         day(15, 9, 0),
		},
		{
			name:         "start date in another zone keeps its calendar day",
			start:        ptr(time.Date(2024, time.January, 10, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))),
			skipWeekends: true,
			want:         day(10, 9, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := DefaultParams()
			params.SkipWeekends = tt.skipWeekends
			params.StartDate = tt.start

			c := NewCursor(params, tt.now)
			if !c.Current().Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, c.Current())
			}
		})
	}
}

func TestCursorWouldExceedBusinessHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		at       time.Time
		duration int
		close    int
		want     bool
	}{
		{name: "morning", at: day(8, 9, 0), duration: 45, close: 17, want: false},
		{name: "last slot", at: day(8, 16, 0), duration: 45, close: 17, want: false},
		{name: "ends exactly at close", at: day(8, 16, 15), duration: 45, close: 17, want: true},
		{name: "at close", at: day(8, 17, 0), duration: 45, close: 17, want: true},
		{name: "past close", at: day(8, 18, 30), duration: 45, close: 17, want: true},
		{name: "short interview before close", at: day(8, 16, 44), duration: 15, close: 17, want: false},
		{name: "long interview", at: day(8, 14, 0), duration: 180, close: 17, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := DefaultParams()
			params.DurationMinutes = tt.duration
			params.CloseHour = tt.close
			c := &Cursor{params: params, current: tt.at}

			if got := c.WouldExceedBusinessHours(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCursorReserveDoesNotMove(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	params.StartDate = ptr(day(8, 0, 0))
	c := NewCursor(params, time.Time{})

	start, end := c.Reserve()
	again, _ := c.Reserve()

	if !start.Equal(day(8, 9, 0)) || !end.Equal(day(8, 9, 45)) {
		t.Fatalf("unexpected window %s - %s", start, end)
	}
	if !again.Equal(start) {
		t.Fatal("reserve must not mutate the cursor")
	}
}

func TestCursorAdvanceAndRoll(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	params.StartDate = ptr(day(12, 0, 0))
	c := NewCursor(params, time.Time{})

	_, end := c.Reserve()
	c.Advance(end)
	if !c.Current().Equal(day(12, 10, 0)) {
		t.Fatalf("expected 10:00 after advance, got %s", c.Current())
	}

	c.RollToNextDay()
	if !c.Current().Equal(day(15, 9, 0)) {
		t.Fatalf("expected friday to roll to monday, got %s", c.Current())
	}

	params.SkipWeekends = false
	c = NewCursor(params, time.Time{})
	c.RollToNextDay()
	if !c.Current().Equal(day(13, 9, 0)) {
		t.Fatalf("expected saturday without weekend skip, got %s", c.Current())
	}
}

func TestCursorAdvanceAcrossMidnight(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	params.CloseHour = 24
	params.StartDate = ptr(day(8, 0, 0))
	c := &Cursor{params: params, current: day(8, 23, 0)}

	if c.WouldExceedBusinessHours() {
		t.Fatal("23:00 + 45m fits before midnight")
	}

	_, end := c.Reserve()
	c.Advance(end)
	if !c.Current().Equal(day(9, 9, 0)) {
		t.Fatalf("expected next day at open, got %s", c.Current())
	}

	c = &Cursor{params: params, current: day(12, 23, 0)}
	_, end = c.Reserve()
	c.Advance(end)
	if !c.Current().Equal(day(15, 9, 0)) {
		t.Fatalf("expected monday at open, got %s", c.Current())
	}
}

func TestCursorAdvanceIsMonotonic(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	params.StartDate = ptr(day(8, 0, 0))
	c := NewCursor(params, time.Time{})

	c.Advance(day(8, 8, 0))
	if !c.Current().Equal(day(8, 9, 0)) {
		t.Fatalf("cursor moved backwards to %s", c.Current())
	}
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	mutate := func(fn func(*Params)) Params {
		p := DefaultParams()
		fn(&p)
		return p
	}

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "defaults", params: DefaultParams()},
		{name: "zero buffer", params: mutate(func(p *Params) { p.BufferMinutes = 0 })},
		{name: "whole day", params: mutate(func(p *Params) { p.OpenHour, p.CloseHour = 0, 24 })},
		{name: "zero duration", params: mutate(func(p *Params) { p.DurationMinutes = 0 }), wantErr: true},
		{name: "negative buffer", params: mutate(func(p *Params) { p.BufferMinutes = -5 }), wantErr: true},
		{name: "close before open", params: mutate(func(p *Params) { p.OpenHour, p.CloseHour = 17, 9 }), wantErr: true},
		{name: "close past midnight", params: mutate(func(p *Params) { p.CloseHour = 25 }), wantErr: true},
		{name: "negative open", params: mutate(func(p *Params) { p.OpenHour = -1 }), wantErr: true},
		{name: "interview longer than the day", params: mutate(func(p *Params) { p.OpenHour, p.CloseHour = 9, 10; p.DurationMinutes = 60 }), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
