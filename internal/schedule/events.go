package schedule

import (
	"fmt"
	"strconv"

	"github.com/username/workload-planner/internal/store"
	"github.com/username/workload-planner/pkg/dateutil"
)

const defaultEventColor = "#1890ff"

var taskTypeColors = map[string]string{
	"requirements":    "#1890ff",
	"research":        "#722ed1",
	"product_design":  "#13c2c2",
	"ux_design":       "#eb2f96",
	"architecture":    "#fa8c16",
	"detailed_design": "#a0d911",
	"development":     "#52c41a",
	"code_review":     "#2f54eb",
	"demo":            "#fadb14",
	"test_design":     "#f5222d",
	"testing":         "#faad14",
	"acceptance":      "#ff7a45",
	"bug":             "#f5222d",
}

// CalendarEvent is a task rendered for calendar widgets. End is exclusive.
type CalendarEvent struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Start      string        `json:"start"`
	End        *string       `json:"end,omitempty"`
	ResourceID *string       `json:"resource_id,omitempty"`
	Color      string        `json:"color"`
	ExtProps   EventExtProps `json:"ext_props"`
}

// EventExtProps carries task metadata alongside an event
type EventExtProps struct {
	TaskID       int64    `json:"task_id"`
	TaskType     *string  `json:"task_type,omitempty"`
	Priority     *string  `json:"priority,omitempty"`
	Status       string   `json:"status"`
	OwnerID      *int64   `json:"owner_id,omitempty"`
	OwnerName    *string  `json:"owner_name,omitempty"`
	PlannedHours *float64 `json:"planned_hours,omitempty"`
}

// CalendarResource is a developer row in resource views
type CalendarResource struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AvatarColor string `json:"avatar_color"`
}

// TaskTypeColor returns the display color for a task type
func TaskTypeColor(taskType *string) string {
	if taskType == nil {
		return defaultEventColor
	}
	if c, ok := taskTypeColors[*taskType]; ok {
		return c
	}
	return defaultEventColor
}

// ProjectEvents turns tasks into calendar events
func ProjectEvents(tasks []store.Task) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(tasks))
	for _, t := range tasks {
		title := t.Name
		if t.OwnerName != nil {
			title = fmt.Sprintf("%s [%s]", t.Name, *t.OwnerName)
		}

		ev := CalendarEvent{
			ID:    fmt.Sprintf("task-%d", t.ID),
			Title: title,
			Color: TaskTypeColor(t.TaskType),
			ExtProps: EventExtProps{
				TaskID:       t.ID,
				TaskType:     t.TaskType,
				Priority:     t.Priority,
				Status:       t.Status,
				OwnerID:      t.OwnerID,
				OwnerName:    t.OwnerName,
				PlannedHours: t.PlannedHours,
			},
		}
		if t.PlannedStart != nil {
			ev.Start = *t.PlannedStart
		}
		if t.PlannedEnd != nil {
			end := *t.PlannedEnd
			// calendar widgets treat end as exclusive
			if d, err := dateutil.ParseISODate(end); err == nil {
				end = dateutil.FormatISODate(dateutil.AddDays(d, 1))
			}
			ev.End = &end
		}
		if t.OwnerID != nil {
			id := strconv.FormatInt(*t.OwnerID, 10)
			ev.ResourceID = &id
		}

		events = append(events, ev)
	}
	return events
}

// ProjectResources returns the active developers as calendar resources
func ProjectResources(devs []store.Developer) []CalendarResource {
	resources := make([]CalendarResource, 0, len(devs))
	for _, d := range devs {
		if !d.IsActive {
			continue
		}
		resources = append(resources, CalendarResource{
			ID:          strconv.FormatInt(d.ID, 10),
			Title:       d.Name,
			AvatarColor: d.AvatarColor,
		})
	}
	return resources
}
