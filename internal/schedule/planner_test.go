package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/internal/store"
)

type fakeSource struct {
	mu    sync.Mutex
	facts map[int][]calendar.DayFact
	calls int
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) FetchYear(_ context.Context, year int) ([]calendar.DayFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.facts[year], nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	unreachable int
}

func (r *fakeRecorder) ObserveAllocation(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) AddUnreachable(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreachable += n
}

type plannerFixture struct {
	store    *store.Store
	source   *fakeSource
	recorder *fakeRecorder
	planner  *Planner
}

func newPlannerFixture(t *testing.T) *plannerFixture {
	t.Helper()

	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := &fakeSource{facts: map[int][]calendar.DayFact{
		2025: {{Date: day("2025-10-01"), IsHoliday: true, Name: "National Day"}},
	}}
	logger := zaptest.NewLogger(t)
	cal := calendar.NewWorkdayCalendar(src, st, calendar.WithLogger(logger))
	rec := &fakeRecorder{}

	return &plannerFixture{
		store:    st,
		source:   src,
		recorder: rec,
		planner: NewPlanner(st, cal, NewEngine(cal),
			WithRecorder(rec),
			WithWorkers(2),
			WithPlannerLogger(logger)),
	}
}

func (f *plannerFixture) developer(t *testing.T, name string, hours float64) *store.Developer {
	t.Helper()
	dev, err := f.store.CreateDeveloper(context.Background(), name, hours, "")
	require.NoError(t, err)
	return dev
}

func (f *plannerFixture) task(t *testing.T, owner int64, name string, hours *float64, start, end string) *store.Task {
	t.Helper()
	task, err := f.store.CreateTask(context.Background(), store.NewTask{
		Name:         name,
		TaskType:     strPtr("development"),
		OwnerID:      &owner,
		PlannedStart: strPtr(start),
		PlannedEnd:   strPtr(end),
		PlannedHours: hours,
	})
	require.NoError(t, err)
	return task
}

func TestDeveloperWorkload(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	bob := f.developer(t, "Bob", 8)
	f.task(t, alice.ID, "API", floatPtr(12), "2025-03-03", "2025-03-04")
	f.task(t, alice.ID, "Unestimated", nil, "2025-03-03", "2025-03-04")
	cancelled := f.task(t, alice.ID, "Dropped", floatPtr(40), "2025-03-03", "2025-03-04")
	require.NoError(t, f.store.UpdateTaskStatus(ctx, cancelled.ID, store.StatusCancelled))
	f.task(t, bob.ID, "Not mine", floatPtr(8), "2025-03-03", "2025-03-04")

	report, err := f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-03", "2025-03-04", false)
	require.NoError(t, err)

	assert.Equal(t, "Alice", report.DeveloperName)
	assert.Equal(t, "2025-03-03", report.Start)
	assert.Equal(t, map[string]float64{"2025-03-03": 8, "2025-03-04": 4}, hoursByDate(report.Days))
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipMissingEffort, report.Skipped[0].Reason)
	assert.Empty(t, report.Diagnostics)

	assert.Equal(t, []string{OutcomeOK}, f.recorder.outcomes)
	assert.Equal(t, 1, f.source.calls, "2025 synced once")

	// cached after the first run
	_, err = f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-03", "2025-03-04", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.source.calls)
}

func TestDeveloperWorkload_HolidayMakesDeadlineUnreachable(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	f.task(t, alice.ID, "Release", floatPtr(6), "2025-10-01", "2025-10-01")

	report, err := f.planner.DeveloperWorkload(ctx, alice.ID, "2025-09-29", "2025-10-03", false)
	require.NoError(t, err)

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, ReasonNoWorkingDay, report.Diagnostics[0].Reason)
	assert.Equal(t, 6.0, report.Diagnostics[0].RemainingHours)
	assert.Equal(t, "2025-10-01", report.Diagnostics[0].WindowEnd)
	assert.Len(t, report.Days, 4)

	assert.Equal(t, []string{OutcomeUnreachable}, f.recorder.outcomes)
	assert.Equal(t, 1, f.recorder.unreachable)
}

func TestDeveloperWorkload_IncludeOvertimeCoversHoliday(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	f.task(t, alice.ID, "Release", floatPtr(6), "2025-10-01", "2025-10-01")

	report, err := f.planner.DeveloperWorkload(ctx, alice.ID, "2025-09-29", "2025-10-03", true)
	require.NoError(t, err)

	assert.Empty(t, report.Diagnostics)
	assert.True(t, report.IncludeOvertime)
	require.Len(t, report.Days, 5)
	assert.Equal(t, 6.0, report.Days[2].AllocatedHours)
	assert.True(t, report.Days[2].IsOvertime)
}

func TestDeveloperWorkload_NoTasks(t *testing.T) {
	f := newPlannerFixture(t)
	alice := f.developer(t, "Alice", 8)

	report, err := f.planner.DeveloperWorkload(context.Background(), alice.ID, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)

	assert.NotNil(t, report.Days)
	assert.Empty(t, report.Days)
	assert.Equal(t, []string{OutcomeEmpty}, f.recorder.outcomes)
	assert.Equal(t, 0, f.source.calls)
}

func TestDeveloperWorkload_Errors(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)
	alice := f.developer(t, "Alice", 8)

	_, err := f.planner.DeveloperWorkload(ctx, 999, "2025-03-03", "2025-03-07", false)
	assert.ErrorIs(t, err, ErrDeveloperNotFound)

	_, err = f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-xx", "2025-03-07", false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-07", "2025-03-03", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTeamWorkload(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	bob := f.developer(t, "Bob", 6)
	carol := f.developer(t, "Carol", 8)
	require.NoError(t, f.store.SetDeveloperActive(ctx, carol.ID, false))

	f.task(t, alice.ID, "API", floatPtr(12), "2025-03-03", "2025-03-04")
	f.task(t, bob.ID, "UI", floatPtr(12), "2025-03-03", "2025-03-04")
	f.task(t, carol.ID, "Ignored", floatPtr(12), "2025-03-03", "2025-03-04")

	report, err := f.planner.TeamWorkload(ctx, "2025-03-03", "2025-03-04", false)
	require.NoError(t, err)

	require.Len(t, report.Developers, 2)
	assert.Equal(t, alice.ID, report.Developers[0].DeveloperID)
	assert.Equal(t, bob.ID, report.Developers[1].DeveloperID)

	// simulations are independent per developer
	assert.Equal(t, map[string]float64{"2025-03-03": 8, "2025-03-04": 4}, hoursByDate(report.Developers[0].Days))
	assert.Equal(t, map[string]float64{"2025-03-03": 6, "2025-03-04": 6}, hoursByDate(report.Developers[1].Days))
	assert.Equal(t, 1, f.source.calls)
}

func TestCalendarEventsAndResources(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	bob := f.developer(t, "Bob", 8)
	f.task(t, alice.ID, "API", floatPtr(12), "2025-03-03", "2025-03-04")
	f.task(t, bob.ID, "UI", floatPtr(4), "2025-03-10", "2025-03-12")
	f.task(t, bob.ID, "Later", floatPtr(4), "2025-05-01", "2025-05-02")

	events, err := f.planner.CalendarEvents(ctx, "2025-03-01", "2025-03-31", nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "API [Alice]", events[0].Title)
	assert.Equal(t, "2025-03-05", *events[0].End)

	events, err = f.planner.CalendarEvents(ctx, "2025-03-01", "2025-03-31", &bob.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "UI [Bob]", events[0].Title)

	_, err = f.planner.CalendarEvents(ctx, "bad", "2025-03-31", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	resources, err := f.planner.CalendarResources(ctx)
	require.NoError(t, err)
	assert.Len(t, resources, 2)
}

func TestDeveloperWorkload_LongRunningTaskIsClipped(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	ann := f.developer(t, "Ann", 8)
	bob := f.developer(t, "Bob", 8)
	epic := f.task(t, ann.ID, "Platform rewrite", floatPtr(400), "2021-01-04", "2026-12-31")
	f.task(t, ann.ID, "Hotfix", floatPtr(4), "2025-03-03", "2025-03-07")
	f.task(t, bob.ID, "UI", floatPtr(12), "2025-03-03", "2025-03-04")

	report, err := f.planner.DeveloperWorkload(ctx, ann.ID, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)

	require.Len(t, report.Clipped, 1)
	assert.Equal(t, epic.ID, report.Clipped[0].TaskID)
	assert.Equal(t, day("2021-01-04"), report.Clipped[0].WindowStart)
	// the rewrite is finished long before March 2025
	assert.Equal(t, map[string]float64{
		"2025-03-03": 4, "2025-03-04": 0, "2025-03-05": 0, "2025-03-06": 0, "2025-03-07": 0,
	}, hoursByDate(report.Days))

	team, err := f.planner.TeamWorkload(ctx, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)
	require.Len(t, team.Developers, 2)
	assert.Empty(t, team.Developers[0].Error)
	assert.Equal(t, bob.ID, team.Developers[1].DeveloperID)
	assert.Equal(t, 8.0, hoursByDate(team.Developers[1].Days)["2025-03-03"])
}

func TestDeveloperWorkload_RangeOverLimit(t *testing.T) {
	f := newPlannerFixture(t)
	alice := f.developer(t, "Alice", 8)

	_, err := f.planner.DeveloperWorkload(context.Background(), alice.ID, "2020-01-01", "2025-12-31", false)
	var inv *InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "range", inv.Field)

	_, err = f.planner.TeamWorkload(context.Background(), "2020-01-01", "2025-12-31", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, f.source.calls)
}

func TestDeveloperWorkload_DistantDeadlineFetchesBoundedYears(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	f.task(t, alice.ID, "Forever", floatPtr(40), "2025-03-03", "2199-12-31")

	_, err := f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)
	// 2025-03-07 plus the default look-ahead reaches into 2028
	assert.Equal(t, 4, f.source.calls)

	// years without facts are not fetched again right away
	_, err = f.planner.DeveloperWorkload(ctx, alice.ID, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)
	assert.Equal(t, 4, f.source.calls)
}

func TestDeveloperWorkload_TimestampedTaskOnLastDay(t *testing.T) {
	f := newPlannerFixture(t)
	alice := f.developer(t, "Alice", 8)
	f.task(t, alice.ID, "Release", floatPtr(4), "2025-03-07T09:00:00", "2025-03-07T18:00:00")

	report, err := f.planner.DeveloperWorkload(context.Background(), alice.ID, "2025-03-03", "2025-03-07", false)
	require.NoError(t, err)
	assert.Equal(t, 4.0, hoursByDate(report.Days)["2025-03-07"])
	assert.Empty(t, report.Skipped)
}

// brokenTasks fails task loading for one developer
type brokenTasks struct {
	*store.Store
	broken int64
}

func (b brokenTasks) TasksForDeveloperInRange(ctx context.Context, developerID int64, start, end string) ([]store.Task, error) {
	if developerID == b.broken {
		return nil, errors.New("disk I/O error")
	}
	return b.Store.TasksForDeveloperInRange(ctx, developerID, start, end)
}

func TestTeamWorkload_FailureStaysWithDeveloper(t *testing.T) {
	ctx := context.Background()
	f := newPlannerFixture(t)

	alice := f.developer(t, "Alice", 8)
	bob := f.developer(t, "Bob", 6)
	f.task(t, alice.ID, "API", floatPtr(12), "2025-03-03", "2025-03-04")
	f.task(t, bob.ID, "UI", floatPtr(12), "2025-03-03", "2025-03-04")

	cal := calendar.NewWorkdayCalendar(f.source, f.store)
	planner := NewPlanner(brokenTasks{Store: f.store, broken: alice.ID}, cal, NewEngine(cal),
		WithRecorder(f.recorder),
		WithPlannerLogger(zaptest.NewLogger(t)))

	report, err := planner.TeamWorkload(ctx, "2025-03-03", "2025-03-04", false)
	require.NoError(t, err)
	require.Len(t, report.Developers, 2)

	assert.Equal(t, alice.ID, report.Developers[0].DeveloperID)
	assert.Contains(t, report.Developers[0].Error, "disk I/O error")
	assert.Empty(t, report.Developers[0].Days)

	assert.Empty(t, report.Developers[1].Error)
	assert.Equal(t, map[string]float64{"2025-03-03": 6, "2025-03-04": 6}, hoursByDate(report.Developers[1].Days))
	assert.Contains(t, f.recorder.outcomes, OutcomeError)
}
