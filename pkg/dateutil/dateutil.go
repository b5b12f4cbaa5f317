// Package dateutil provides calendar-day parsing and weekday helpers used by the scheduling core.
package dateutil

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Validation errors.
var (
	ErrInvalidDateFormat  = errors.New("date must be in YYYY-MM-DD format")
	ErrEndDateBeforeStart = errors.New("end date must be on or after start date")
	ErrInvalidWeekday     = errors.New("unknown weekday name")
)

var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses both bounds and rejects an end before the start.
func NewDateRange(startDate, endDate string) (*DateRange, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrEndDateBeforeStart
	}
	return &DateRange{Start: start, End: end}, nil
}

// Contains reports whether t falls on a day inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	day := TruncateToDay(t)
	start := TruncateToDay(r.Start)
	end := TruncateToDay(r.End)
	return !day.Before(start) && !day.After(end)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateToDay returns t with time set to midnight in UTC-naive form.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekdayName returns the canonical weekday name of t, e.g. "Saturday".
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// ParseWeekday resolves a case-insensitive weekday name.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayMap[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return time.Sunday, ErrInvalidWeekday
	}
	return day, nil
}

// NormalizeDay canonicalises a weekday name ("saturday" -> "Saturday").
func NormalizeDay(name string) (string, error) {
	day, err := ParseWeekday(name)
	if err != nil {
		return "", err
	}
	return day.String(), nil
}

// SameDay compares weekday names ignoring case and surrounding whitespace.
func SameDay(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// DayIndex orders weekdays Monday-first (Monday=1 ... Sunday=7); unknown names sort last.
func DayIndex(name string) int {
	day, err := ParseWeekday(name)
	if err != nil {
		return 8
	}
	if day == time.Sunday {
		return 7
	}
	return int(day)
}
