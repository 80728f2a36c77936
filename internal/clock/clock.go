// Package clock supplies the library's notion of "today".
//
// Borrow, due and return dates are calendar dates. They are stored as midnight
// UTC of the calendar day observed in the library's time zone, so comparisons in
// SQL stay plain column comparisons on every supported database.
package clock

import (
	"fmt"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock and interprets dates in Location.
type System struct {
	Location *time.Location
}

// Now returns the current time in the configured location.
func (s System) Now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Fixed always returns the same instant. Used by tests and seeding.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Date truncates t to its calendar day and re-anchors it at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day of c.
func Today(c Clock) time.Time {
	return Date(c.Now())
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp and returns the calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return Date(t), nil
}
