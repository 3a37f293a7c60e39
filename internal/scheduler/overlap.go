package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a half-open same-day time window [Start, End) in minutes
// since midnight.
type Window struct {
	Start int
	End   int
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock value %q, want HH:MM", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hours*60 + minutes, nil
}

// ParseWindow converts start/end "HH:MM" strings into a Window and
// rejects zero or negative durations.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if s >= e {
		return Window{}, fmt.Errorf("window %s-%s has no positive duration", start, end)
	}
	return Window{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open windows intersect. Touching
// boundaries, where one window ends exactly when the other starts, do
// not conflict.
func Overlaps(a, b Window) bool {
	return a.Start < b.End && a.End > b.Start
}

// Duration returns the window length in minutes.
func (w Window) Duration() int {
	return w.End - w.Start
}
