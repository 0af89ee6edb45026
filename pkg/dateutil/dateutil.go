// Package dateutil treats time.Time values as timezone-naive calendar days.
package dateutil

import (
	"math"
	"time"
)

const (
	Layout = "2006-01-02"
	day    = 24 * time.Hour
)

// Day truncates t to midnight UTC of its calendar date. The wall-clock date is
// kept as-is; no zone conversion happens.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day as seen in loc (UTC when loc is nil).
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return Day(now)
}

// Date builds a calendar day.
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// AddDays shifts a calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns (b - a) in fractional days after truncating both to day
// granularity.
func DaysBetween(a, b time.Time) float64 {
	return float64(Day(b).Sub(Day(a))) / float64(day)
}

// CeilDays and FloorDays round a day span.
func CeilDays(a, b time.Time) int {
	return int(math.Ceil(DaysBetween(a, b)))
}

func FloorDays(a, b time.Time) int {
	return int(math.Floor(DaysBetween(a, b)))
}

// Before, After and Equal compare at day granularity.
func Before(a, b time.Time) bool { return Day(a).Before(Day(b)) }
func After(a, b time.Time) bool  { return Day(a).After(Day(b)) }
func Equal(a, b time.Time) bool  { return Day(a).Equal(Day(b)) }

// Format renders a calendar day, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Day(t).Format(Layout)
}
