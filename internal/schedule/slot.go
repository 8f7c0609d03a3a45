package schedule

import (
	"math"
	"time"

	"github.com/username/workload-planner/pkg/dateutil"
)

// Skip reasons reported by BuildSlots
const (
	SkipMissingEffort     = "missing_effort"
	SkipNonPositiveEffort = "non_positive_effort"
	SkipMissingStart      = "missing_start"
	SkipMissingEnd        = "missing_end"
	SkipInvalidStart      = "invalid_start"
	SkipInvalidEnd        = "invalid_end"
)

// TaskRecord is a task as supplied by the task store
type TaskRecord struct {
	ID           int64
	Name         string
	EffortHours  *float64
	PlannedStart *string
	PlannedEnd   *string
}

// Slot is the per-run allocation state of one task
type Slot struct {
	TaskID      int64
	TaskName    string
	Effort      float64 // total planned hours
	WindowStart time.Time
	WindowEnd   time.Time // inclusive
}

// SkippedTask records a task left out of allocation
type SkippedTask struct {
	TaskID   int64  `json:"task_id"`
	TaskName string `json:"task_name"`
	Reason   string `json:"reason"`
}

// BuildSlots projects task records into allocation slots. Tasks without a
// positive effort or without two parseable dates are skipped, never fatal.
func BuildSlots(tasks []TaskRecord) ([]Slot, []SkippedTask) {
	slots := make([]Slot, 0, len(tasks))
	var skipped []SkippedTask

	for _, t := range tasks {
		slot, reason := buildSlot(t)
		if reason != "" {
			skipped = append(skipped, SkippedTask{TaskID: t.ID, TaskName: t.Name, Reason: reason})
			continue
		}
		slots = append(slots, slot)
	}

	return slots, skipped
}

func buildSlot(t TaskRecord) (Slot, string) {
	if t.EffortHours == nil || math.IsNaN(*t.EffortHours) || math.IsInf(*t.EffortHours, 0) {
		return Slot{}, SkipMissingEffort
	}
	if *t.EffortHours <= 0 {
		return Slot{}, SkipNonPositiveEffort
	}
	if t.PlannedStart == nil || *t.PlannedStart == "" {
		return Slot{}, SkipMissingStart
	}
	if t.PlannedEnd == nil || *t.PlannedEnd == "" {
		return Slot{}, SkipMissingEnd
	}

	start, err := dateutil.ParseISODate(*t.PlannedStart)
	if err != nil {
		return Slot{}, SkipInvalidStart
	}
	end, err := dateutil.ParseISODate(*t.PlannedEnd)
	if err != nil {
		return Slot{}, SkipInvalidEnd
	}

	return Slot{
		TaskID:      t.ID,
		TaskName:    t.Name,
		Effort:      *t.EffortHours,
		WindowStart: start,
		WindowEnd:   end,
	}, ""
}
