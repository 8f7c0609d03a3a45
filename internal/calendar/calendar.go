package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/workload-planner/pkg/dateutil"
)

var (
	// ErrSourceUnavailable is returned when a holiday source cannot deliver data for a year
	ErrSourceUnavailable = errors.New("holiday source unavailable")

	// ErrInvalidOvertime is returned for an unknown weekend mode
	ErrInvalidOvertime = errors.New("invalid overtime configuration")

	// ErrInvalidYear is returned by Sync for years outside 1900..9999
	ErrInvalidYear = errors.New("invalid year")
)

// SourceError describes a failed fetch from a holiday source
type SourceError struct {
	Source string
	Year   int
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: year %d: %v", e.Source, e.Year, e.Err)
}

// Unwrap exposes ErrSourceUnavailable so callers can use errors.Is
func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// DayFact is an authoritative statement about a single date
type DayFact struct {
	Date            time.Time
	IsHoliday       bool // day off, even on a weekday
	IsMakeupWorkday bool // worked weekend
	Name            string
	Year            int
}

// DayKind classifies a date after applying calendar precedence
type DayKind int

const (
	DayKindWorkday DayKind = iota + 1
	DayKindWeekend
	DayKindHoliday
	DayKindMakeupWorkday
	DayKindOvertime
)

// IsWorking reports whether capacity is available on a day of this kind
func (k DayKind) IsWorking() bool {
	switch k {
	case DayKindWorkday, DayKindMakeupWorkday, DayKindOvertime:
		return true
	default:
		return false
	}
}

func (k DayKind) String() string {
	switch k {
	case DayKindWorkday:
		return "workday"
	case DayKindWeekend:
		return "weekend"
	case DayKindHoliday:
		return "holiday"
	case DayKindMakeupWorkday:
		return "makeup_workday"
	case DayKindOvertime:
		return "overtime"
	default:
		return "unknown"
	}
}

// WeekendMode selects which weekend days count as overtime workdays
type WeekendMode string

const (
	WeekendNone     WeekendMode = "none"
	WeekendSaturday WeekendMode = "saturday"
	WeekendSunday   WeekendMode = "sunday"
	WeekendBoth     WeekendMode = "both"
)

// ParseWeekendMode parses a weekend mode, treating an empty value as none
func ParseWeekendMode(s string) (WeekendMode, error) {
	switch WeekendMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeekendNone:
		return WeekendNone, nil
	case WeekendSaturday:
		return WeekendSaturday, nil
	case WeekendSunday:
		return WeekendSunday, nil
	case WeekendBoth:
		return WeekendBoth, nil
	default:
		return "", fmt.Errorf("%w: unknown weekend mode %q (expected none, saturday, sunday or both)", ErrInvalidOvertime, s)
	}
}

func (m WeekendMode) covers(weekday time.Weekday) bool {
	switch m {
	case WeekendSaturday:
		return weekday == time.Saturday
	case WeekendSunday:
		return weekday == time.Sunday
	case WeekendBoth:
		return weekday == time.Saturday || weekday == time.Sunday
	default:
		return false
	}
}

// OvertimeConfig marks otherwise non-working dates as worked
type OvertimeConfig struct {
	Weekend     WeekendMode `json:"weekend"`
	CustomDates []string    `json:"custom_dates"`
}

// DefaultOvertimeConfig returns a configuration with no overtime
func DefaultOvertimeConfig() OvertimeConfig {
	return OvertimeConfig{Weekend: WeekendNone, CustomDates: []string{}}
}

// Normalize validates the weekend mode and canonicalizes custom dates.
// Invalid dates are dropped and returned separately.
func (c OvertimeConfig) Normalize() (OvertimeConfig, []string, error) {
	mode, err := ParseWeekendMode(string(c.Weekend))
	if err != nil {
		return OvertimeConfig{}, nil, err
	}

	out := OvertimeConfig{Weekend: mode, CustomDates: make([]string, 0, len(c.CustomDates))}
	seen := make(map[string]bool, len(c.CustomDates))
	var invalid []string
	for _, raw := range c.CustomDates {
		d, err := dateutil.ParseISODate(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		key := dateutil.FormatISODate(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.CustomDates = append(out.CustomDates, key)
	}
	return out, invalid, nil
}

// Matches reports whether the configuration marks date as an overtime day
func (c OvertimeConfig) Matches(date time.Time) bool {
	if c.Weekend.covers(date.Weekday()) {
		return true
	}
	key := dateutil.FormatISODate(date)
	for _, d := range c.CustomDates {
		if d == key {
			return true
		}
	}
	return false
}

// FactStore persists day facts per year
type FactStore interface {
	// LoadYear returns the cached facts for year, empty if none were synced
	LoadYear(ctx context.Context, year int) ([]DayFact, error)

	// ReplaceYear atomically deletes the facts for year and inserts facts
	ReplaceYear(ctx context.Context, year int, facts []DayFact) error
}

// HolidaySource fetches authoritative day facts for a whole year
type HolidaySource interface {
	Name() string
	FetchYear(ctx context.Context, year int) ([]DayFact, error)
}
