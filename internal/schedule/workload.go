package schedule

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/username/workload-planner/pkg/dateutil"
)

// WorkloadTask is one task's share of a day
type WorkloadTask struct {
	TaskID     int64   `json:"task_id"`
	TaskName   string  `json:"task_name"`
	DailyHours float64 `json:"daily_hours"`
}

// WorkloadDay is the allocation for a single working day
type WorkloadDay struct {
	Date           time.Time      `json:"-"`
	AllocatedHours float64        `json:"allocated_hours"`
	MaxHours       float64        `json:"max_hours"`
	AvailableHours float64        `json:"available_hours"`
	IsOvertime     bool           `json:"is_overtime"`
	Tasks          []WorkloadTask `json:"tasks"` // in allocation order
}

// Overflow reports whether last-day forcing pushed the day over capacity
func (d WorkloadDay) Overflow() bool {
	return d.AllocatedHours > d.MaxHours
}

// MarshalJSON renders Date as YYYY-MM-DD
func (d WorkloadDay) MarshalJSON() ([]byte, error) {
	type plain WorkloadDay
	tasks := d.Tasks
	if tasks == nil {
		tasks = []WorkloadTask{}
	}
	return json.Marshal(struct {
		Date string `json:"date"`
		plain
		Tasks []WorkloadTask `json:"tasks"`
	}{
		Date:  dateutil.FormatISODate(d.Date),
		plain: plain(d),
		Tasks: tasks,
	})
}

// ClippedWindow is a slot whose window opened before the look-back limit.
// Allocation for it starts at SimulatedFrom; a zero SimulatedFrom means the
// whole window preceded the limit and the slot was left out.
type ClippedWindow struct {
	TaskID        int64
	TaskName      string
	WindowStart   time.Time
	SimulatedFrom time.Time
}

// MarshalJSON renders the dates as YYYY-MM-DD
func (c ClippedWindow) MarshalJSON() ([]byte, error) {
	out := struct {
		TaskID        int64  `json:"task_id"`
		TaskName      string `json:"task_name"`
		WindowStart   string `json:"window_start"`
		SimulatedFrom string `json:"simulated_from,omitempty"`
	}{
		TaskID:      c.TaskID,
		TaskName:    c.TaskName,
		WindowStart: dateutil.FormatISODate(c.WindowStart),
	}
	if !c.SimulatedFrom.IsZero() {
		out.SimulatedFrom = dateutil.FormatISODate(c.SimulatedFrom)
	}
	return json.Marshal(out)
}

// Result is the outcome of one allocation run
type Result struct {
	Days            []WorkloadDay
	Unreachable     []*UnreachableDeadlineError
	Clipped         []ClippedWindow
	SimulationStart time.Time
	SimulatedDays   int
}

// Err joins the unreachable-deadline diagnostics, nil when every due slot was exhausted
func (r *Result) Err() error {
	if len(r.Unreachable) == 0 {
		return nil
	}
	errs := make([]error, len(r.Unreachable))
	for i, u := range r.Unreachable {
		errs[i] = u
	}
	return errors.Join(errs...)
}

// TotalHours sums allocated hours across the emitted days
func (r *Result) TotalHours() float64 {
	var total float64
	for _, d := range r.Days {
		total += d.AllocatedHours
	}
	return total
}

// Diagnostic is the reporting form of an UnreachableDeadlineError
type Diagnostic struct {
	TaskID         int64   `json:"task_id"`
	TaskName       string  `json:"task_name"`
	RemainingHours float64 `json:"remaining_hours"`
	WindowStart    string  `json:"window_start"`
	WindowEnd      string  `json:"window_end"`
	Reason         string  `json:"reason"`
	Message        string  `json:"message"`
}

// Diagnostics converts the unreachable deadlines for reporting
func (r *Result) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(r.Unreachable))
	for _, u := range r.Unreachable {
		out = append(out, Diagnostic{
			TaskID:         u.TaskID,
			TaskName:       u.TaskName,
			RemainingHours: u.Remaining,
			WindowStart:    dateutil.FormatISODate(u.WindowStart),
			WindowEnd:      dateutil.FormatISODate(u.WindowEnd),
			Reason:         u.Reason,
			Message:        u.Error(),
		})
	}
	return out
}
