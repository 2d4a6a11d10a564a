package attendance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidWindow is returned when a window does not start before it ends.
	ErrInvalidWindow = errors.New("window start must be before window end")
	// ErrInvalidTimeOfDay is returned when a time of day cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		values[i] = v
	}

	t := TimeOfDay{Hour: values[0], Minute: values[1], Second: values[2]}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	return t, nil
}

// String formats the time of day as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the time of day on the calendar day of the given time, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, loc)
}

// Window is the attendance window a report has to be posted in.
// End is inclusive to the second.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow creates a window, rejecting empty or inverted ranges.
func NewWindow(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: %s >= %s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return Window{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End.Truncate(time.Second).Add(time.Second))
}

// Key identifies the window for deduplicating concurrent runs.
func (w Window) Key() string {
	return strconv.FormatInt(w.Start.UnixNano(), 10) + "-" + strconv.FormatInt(w.End.UnixNano(), 10)
}

// String formats the window for logs.
func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + " - " + w.End.Format(time.RFC3339)
}

// Schedule describes the daily attendance window in a fixed location.
type Schedule struct {
	Location *time.Location
	Start    TimeOfDay
	End      TimeOfDay
	// Checks before this local hour evaluate the previous day's window.
	RolloverHour int
}

// DefaultSchedule returns the 18:00:00 - 23:59:59 window used by the reference deployment.
func DefaultSchedule(loc *time.Location) Schedule {
	return Schedule{
		Location:     loc,
		Start:        TimeOfDay{Hour: 18},
		End:          TimeOfDay{Hour: 23, Minute: 59, Second: 59},
		RolloverHour: 6,
	}
}

// Validate checks that the schedule produces non-empty windows.
func (s Schedule) Validate() error {
	if s.Location == nil {
		return fmt.Errorf("%w: missing location", ErrInvalidWindow)
	}

	if s.RolloverHour < 0 || s.RolloverHour > 23 {
		return fmt.Errorf("%w: rollover hour %d out of range", ErrInvalidWindow, s.RolloverHour)
	}

	ref := time.Date(2000, time.January, 1, 0, 0, 0, 0, s.Location)
	_, err := NewWindow(s.Start.On(ref, s.Location), s.End.On(ref, s.Location))

	return err
}

// WindowAt computes the window to evaluate at now. Early morning checks
// (local hour before RolloverHour) look at the previous calendar day.
func (s Schedule) WindowAt(now time.Time) Window {
	local := now.In(s.Location)

	day := local
	if local.Hour() < s.RolloverHour {
		day = local.AddDate(0, 0, -1)
	}

	return Window{
		Start: s.Start.On(day, s.Location),
		End:   s.End.On(day, s.Location),
	}
}

// formatClock renders the local wall clock time of t as HH:MM.
func formatClock(t time.Time) string {
	return t.Format("15:04")
}
