package domain

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of dates. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls within the range.
// The upper bound covers the whole day it names.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(StartOfDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && !t.Before(StartOfDay(r.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (r DateRange) IsOpen() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Validate rejects ranges whose lower bound is after the upper bound.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		v := NewValidationError()
		v.Add("date_range", fmt.Sprintf("from %s is after to %s", r.From.Format(DateLayout), r.To.Format(DateLayout)))
		return v
	}
	return nil
}

// DateLayout is the calendar date format used for input and period keys.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// MonthKey returns the canonical YYYY-MM key for t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// QuarterKey returns the canonical YYYY-Qn key for t.
func QuarterKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}
