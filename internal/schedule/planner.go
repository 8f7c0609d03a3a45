package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/username/workload-planner/internal/store"
	"github.com/username/workload-planner/pkg/dateutil"
)

// Allocation outcomes passed to Recorder
const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "unreachable"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
)

// TaskStore supplies developers and their planned tasks
type TaskStore interface {
	GetDeveloper(ctx context.Context, id int64) (*store.Developer, error)
	ListActiveDevelopers(ctx context.Context) ([]store.Developer, error)
	TasksForDeveloperInRange(ctx context.Context, developerID int64, start, end string) ([]store.Task, error)
	TasksInRange(ctx context.Context, start, end string) ([]store.Task, error)
}

// Calendar is the part of the workday calendar the planner needs
type Calendar interface {
	DayClassifier
	EnsureCached(ctx context.Context, start, end time.Time)
}

// Recorder receives allocation metrics
type Recorder interface {
	ObserveAllocation(outcome string, elapsed time.Duration)
	AddUnreachable(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAllocation(string, time.Duration) {}
func (nopRecorder) AddUnreachable(int) {}

// PlannerOption configures a Planner
type PlannerOption func(*Planner)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) PlannerOption {
	return func(p *Planner) {
		p.recorder = r
	}
}

// WithWorkers bounds how many developers TeamWorkload simulates at once
func WithWorkers(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPlannerLogger sets the logger
func WithPlannerLogger(logger *zap.Logger) PlannerOption {
	return func(p *Planner) {
		p.logger = logger
	}
}

// Planner loads tasks for developers and runs the allocation engine over them
type Planner struct {
	tasks    TaskStore
	calendar Calendar
	engine   *Engine
	recorder Recorder
	workers  int
	logger   *zap.Logger
}

// NewPlanner creates a new Planner
func NewPlanner(tasks TaskStore, cal Calendar, engine *Engine, opts ...PlannerOption) *Planner {
	p := &Planner{
		tasks:    tasks,
		calendar: cal,
		engine:   engine,
		recorder: nopRecorder{},
		workers:  4,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeveloperReport is the workload of one developer over a date range
type DeveloperReport struct {
	DeveloperID     int64           `json:"developer_id"`
	DeveloperName   string          `json:"developer_name"`
	Start           string          `json:"start"`
	End             string          `json:"end"`
	IncludeOvertime bool            `json:"include_overtime"`
	Days            []WorkloadDay   `json:"days"`
	Skipped         []SkippedTask   `json:"skipped,omitempty"`
	Diagnostics     []Diagnostic    `json:"diagnostics,omitempty"`
	Clipped         []ClippedWindow `json:"clipped,omitempty"`
	Error           string          `json:"error,omitempty"` // set in team reports when this developer failed
}

// TeamReport holds one DeveloperReport per active developer, ordered by id.
// A developer whose simulation failed keeps its entry with Error set.
type TeamReport struct {
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Developers []DeveloperReport `json:"developers"`
}

// ParseRange parses and validates a YYYY-MM-DD date range
func ParseRange(start, end string) (time.Time, time.Time, error) {
	from, err := dateutil.ParseISODate(start)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput("start", "%v", err)
	}
	to, err := dateutil.ParseISODate(end)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInput("end", "%v", err)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, invalidInput("range", "start %s is after end %s", start, end)
	}
	return from, to, nil
}

// parseRange is ParseRange plus the engine's span limit
func (p *Planner) parseRange(start, end string) (time.Time, time.Time, error) {
	from, to, err := ParseRange(start, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := p.engine.ValidateRange(from, to); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// DeveloperWorkload computes the day-by-day workload of a developer
func (p *Planner) DeveloperWorkload(ctx context.Context, developerID int64, start, end string, includeOvertime bool) (*DeveloperReport, error) {
	from, to, err := p.parseRange(start, end)
	if err != nil {
		return nil, err
	}

	dev, err := p.developer(ctx, developerID)
	if err != nil {
		return nil, err
	}

	return p.workload(ctx, dev, from, to, includeOvertime)
}

func (p *Planner) developer(ctx context.Context, id int64) (*store.Developer, error) {
	dev, err := p.tasks.GetDeveloper(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrDeveloperNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load developer: %w", err)
	}
	return dev, nil
}

func (p *Planner) workload(ctx context.Context, dev *store.Developer, from, to time.Time, includeOvertime bool) (*DeveloperReport, error) {
	began := time.Now()
	report := &DeveloperReport{
		DeveloperID:     dev.ID,
		DeveloperName:   dev.Name,
		Start:           dateutil.FormatISODate(from),
		End:             dateutil.FormatISODate(to),
		IncludeOvertime: includeOvertime,
		Days:            []WorkloadDay{},
	}

	// 1. Load tasks overlapping the range
	tasks, err := p.tasks.TasksForDeveloperInRange(ctx, dev.ID, report.Start, report.End)
	if err != nil {
		p.recorder.ObserveAllocation(OutcomeError, time.Since(began))
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	// 2. Project into slots
	slots, skipped := BuildSlots(RecordsFromTasks(tasks))
	report.Skipped = skipped
	for _, s := range skipped {
		p.logger.Warn("Task skipped from allocation",
			zap.Int64("developer_id", dev.ID),
			zap.Int64("task_id", s.TaskID),
			zap.String("task", s.TaskName),
			zap.String("reason", s.Reason))
	}

	if len(slots) == 0 {
		p.logger.Info("No allocatable tasks",
			zap.Int64("developer_id", dev.ID),
			zap.String("start", report.Start),
			zap.String("end", report.End))
		p.recorder.ObserveAllocation(OutcomeEmpty, time.Since(began))
		return report, nil
	}

	// 3. Make sure holidays are known for every day the engine reads
	simStart, horizonEnd := p.engine.SimulationRange(from, to, slots)
	p.calendar.EnsureCached(ctx, simStart, horizonEnd)

	// 4. Simulate
	result, err := p.engine.Allocate(Request{
		Capacity:        dev.MaxHoursPerDay,
		Slots:           slots,
		Start:           from,
		End:             to,
		IncludeOvertime: includeOvertime,
	})
	if err != nil {
		p.recorder.ObserveAllocation(OutcomeError, time.Since(began))
		return nil, fmt.Errorf("developer %d: %w", dev.ID, err)
	}

	if result.Days != nil {
		report.Days = result.Days
	}
	report.Diagnostics = result.Diagnostics()
	report.Clipped = result.Clipped
	for _, c := range result.Clipped {
		p.logger.Warn("Task window opens before the look-back limit",
			zap.Int64("developer_id", dev.ID),
			zap.Int64("task_id", c.TaskID),
			zap.String("window_start", dateutil.FormatISODate(c.WindowStart)),
			zap.String("simulation_start", dateutil.FormatISODate(result.SimulationStart)))
	}

	outcome := OutcomeOK
	if len(result.Unreachable) > 0 {
		outcome = OutcomeUnreachable
		for _, u := range result.Unreachable {
			p.logger.Warn("Task effort cannot be consumed within its window",
				zap.Int64("developer_id", dev.ID),
				zap.Error(u))
		}
		p.recorder.AddUnreachable(len(result.Unreachable))
	}
	p.recorder.ObserveAllocation(outcome, time.Since(began))

	p.logger.Info("Workload computed",
		zap.Int64("developer_id", dev.ID),
		zap.String("start", report.Start),
		zap.String("end", report.End),
		zap.Int("slots", len(slots)),
		zap.Int("days", len(result.Days)),
		zap.Float64("total_hours", result.TotalHours()),
		zap.Int("unreachable", len(result.Unreachable)))

	return report, nil
}

// TeamWorkload computes the workload of every active developer. Each
// developer gets an independent simulation; one developer's failure is
// reported on its entry and does not affect the others.
func (p *Planner) TeamWorkload(ctx context.Context, start, end string, includeOvertime bool) (*TeamReport, error) {
	from, to, err := p.parseRange(start, end)
	if err != nil {
		return nil, err
	}

	devs, err := p.tasks.ListActiveDevelopers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}

	// holiday sync happens once up front instead of racing per developer
	p.calendar.EnsureCached(ctx, from, to)

	reports := make([]DeveloperReport, len(devs))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range devs {
		i := i
		dev := devs[i]
		g.Go(func() error {
			report, err := p.workload(ctx, &dev, from, to, includeOvertime)
			if err != nil {
				p.logger.Error("Developer workload failed",
					zap.Int64("developer_id", dev.ID),
					zap.Error(err))
				reports[i] = DeveloperReport{
					DeveloperID:     dev.ID,
					DeveloperName:   dev.Name,
					Start:           dateutil.FormatISODate(from),
					End:             dateutil.FormatISODate(to),
					IncludeOvertime: includeOvertime,
					Days:            []WorkloadDay{},
					Error:           err.Error(),
				}
				return nil
			}
			reports[i] = *report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &TeamReport{
		Start:      dateutil.FormatISODate(from),
		End:        dateutil.FormatISODate(to),
		Developers: reports,
	}, nil
}

// CalendarEvents projects tasks overlapping [start, end] into calendar events,
// optionally for a single developer.
func (p *Planner) CalendarEvents(ctx context.Context, start, end string, developerID *int64) ([]CalendarEvent, error) {
	from, to, err := p.parseRange(start, end)
	if err != nil {
		return nil, err
	}
	p.calendar.EnsureCached(ctx, from, to)

	var tasks []store.Task
	if developerID != nil {
		tasks, err = p.tasks.TasksForDeveloperInRange(ctx, *developerID, dateutil.FormatISODate(from), dateutil.FormatISODate(to))
	} else {
		tasks, err = p.tasks.TasksInRange(ctx, dateutil.FormatISODate(from), dateutil.FormatISODate(to))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return ProjectEvents(tasks), nil
}

// CalendarResources lists active developers as calendar resources
func (p *Planner) CalendarResources(ctx context.Context) ([]CalendarResource, error) {
	devs, err := p.tasks.ListActiveDevelopers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}
	return ProjectResources(devs), nil
}

// RecordsFromTasks converts stored tasks into projection input
func RecordsFromTasks(tasks []store.Task) []TaskRecord {
	records := make([]TaskRecord, len(tasks))
	for i, t := range tasks {
		records[i] = TaskRecord{
			ID:           t.ID,
			Name:         t.Name,
			EffortHours:  t.PlannedHours,
			PlannedStart: t.PlannedStart,
			PlannedEnd:   t.PlannedEnd,
		}
	}
	return records
}
