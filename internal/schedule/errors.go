package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/username/workload-planner/pkg/dateutil"
)

var (
	// ErrInvalidInput is returned before any simulation when a request is malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreachableDeadline marks a task whose effort could not be consumed within its window
	ErrUnreachableDeadline = errors.New("unreachable deadline")

	// ErrDeveloperNotFound is returned when a workload is requested for an unknown developer
	ErrDeveloperNotFound = errors.New("developer not found")
)

// InvalidInputError describes a rejected request field
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func invalidInput(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Unreachable reasons
const (
	ReasonEmptyWindow  = "empty_window"   // window_start after window_end
	ReasonNoWorkingDay = "no_working_day" // no working or overtime day inside the window
)

// UnreachableDeadlineError is a diagnostic for a slot that still had effort
// left when its window closed.
type UnreachableDeadlineError struct {
	TaskID      int64
	TaskName    string
	Remaining   float64
	WindowStart time.Time
	WindowEnd   time.Time
	Reason      string
}

func (e *UnreachableDeadlineError) Error() string {
	return fmt.Sprintf("task %d (%s): %.2fh left at %s (%s)",
		e.TaskID, e.TaskName, e.Remaining, dateutil.FormatISODate(e.WindowEnd), e.Reason)
}

func (e *UnreachableDeadlineError) Unwrap() error {
	return ErrUnreachableDeadline
}
