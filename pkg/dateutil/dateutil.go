package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the layout used for calendar dates across the planner
const ISODate = "2006-01-02"

// Date returns the UTC midnight of the given calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the clock and location, keeping only the calendar day (UTC midnight)
func Normalize(date time.Time) time.Time {
	return Date(date.Year(), date.Month(), date.Day())
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// FormatISODate formats date as YYYY-MM-DD
func FormatISODate(date time.Time) string {
	return date.Format(ISODate)
}

// ParseISODate parses a calendar date. Timestamps are accepted and truncated to their day.
func ParseISODate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := []string{
		ISODate,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return Normalize(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", dateStr)
}

// AddDays shifts the date by n calendar days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from one date to another (negative if to is earlier)
func DaysBetween(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)).Hours() / 24)
}

// EachDay calls fn for every day in [from, to], stopping early if fn returns false
func EachDay(from, to time.Time, fn func(day time.Time) bool) {
	for d := Normalize(from); !d.After(Normalize(to)); d = d.AddDate(0, 0, 1) {
		if !fn(d) {
			return
		}
	}
}

// YearsBetween returns every calendar year touched by [from, to]
func YearsBetween(from, to time.Time) []int {
	if to.Before(from) {
		return nil
	}
	years := make([]int, 0, to.Year()-from.Year()+1)
	for y := from.Year(); y <= to.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// MinDate returns the earlier of two dates
func MinDate(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of two dates
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Today returns today's date (UTC midnight of the local calendar day)
func Today() time.Time {
	return Normalize(time.Now())
}
