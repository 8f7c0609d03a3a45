package store

// Task statuses
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether status is one of the task statuses
func ValidStatus(status string) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Developer struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	MaxHoursPerDay float64 `json:"max_hours_per_day"`
	AvatarColor    string  `json:"avatar_color"`
	IsActive       bool    `json:"is_active"`
}

// Task is a planned piece of work. Dates are YYYY-MM-DD strings; values that
// are not dates are kept as entered and rejected when tasks are projected
// into allocation slots.
type Task struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	TaskType     *string  `json:"task_type,omitempty"`
	Priority     *string  `json:"priority,omitempty"`
	Status       string   `json:"status"`
	OwnerID      *int64   `json:"owner_id,omitempty"`
	OwnerName    *string  `json:"owner_name,omitempty"`
	PlannedStart *string  `json:"planned_start,omitempty"`
	PlannedEnd   *string  `json:"planned_end,omitempty"`
	PlannedHours *float64 `json:"planned_hours,omitempty"`
}

// NewTask holds the fields accepted when creating a task
type NewTask struct {
	Name         string
	TaskType     *string
	Priority     *string
	Status       string
	OwnerID      *int64
	PlannedStart *string
	PlannedEnd   *string
	PlannedHours *float64
}

// Setting is one row of app_settings
type Setting struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category"`
}
