// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of window bounds and padded row dates.
const DateLayout = "2006-01-02"

// Window is a half-open date range [From, To). A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func yearBound(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// CalendarYear covers January through December of year.
func CalendarYear(year int) Window {
	return Window{From: yearBound(year, time.January), To: yearBound(year+1, time.January)}
}

// FiscalYear covers October of the previous year through September of year.
func FiscalYear(year int) Window {
	return Window{From: yearBound(year-1, time.October), To: yearBound(year, time.October)}
}

// PMPYear covers July of the previous year through June of year.
func PMPYear(year int) Window {
	return Window{From: yearBound(year-1, time.July), To: yearBound(year, time.July)}
}

// ParseBound parses a YYYY-MM-DD window bound.
func ParseBound(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, format should be YYYY-MM-DD", s)
	}
	return t, nil
}

// WithBounds overrides the window bounds with after and before when they
// are set. Either string may be empty.
func (w Window) WithBounds(after, before string) (Window, error) {
	if after != "" {
		t, err := ParseBound(after)
		if err != nil {
			return w, fmt.Errorf("after date: %w", err)
		}
		w.From = t
	}
	if before != "" {
		t, err := ParseBound(before)
		if err != nil {
			return w, fmt.Errorf("before date: %w", err)
		}
		w.To = t
	}
	return w, nil
}

// ParseDate parses a row date. "YYYY" and "YYYY-MM" are padded to the first
// of the month. Missing dates ("None", "") and malformed ones report false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "None") {
		return time.Time{}, false
	}
	for i := 0; i < 2 && len(s) < len(DateLayout); i++ {
		s += "-01"
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Contains reports whether the row date s falls inside the window. Dates
// that cannot be parsed are outside every window.
func (w Window) Contains(s string) bool {
	t, ok := ParseDate(s)
	if !ok {
		return false
	}
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}
