package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/pkg/dateutil"
)

// fixedDays is a weekday calendar with explicit overrides
type fixedDays map[string]calendar.DayKind

func (f fixedDays) DayKind(d time.Time) calendar.DayKind {
	if k, ok := f[dateutil.FormatISODate(d)]; ok {
		return k
	}
	if dateutil.IsWeekday(d) {
		return calendar.DayKindWorkday
	}
	return calendar.DayKindWeekend
}

func day(s string) time.Time {
	d, err := dateutil.ParseISODate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func slot(id int64, effort float64, start, end string) Slot {
	return Slot{TaskID: id, TaskName: "task", Effort: effort, WindowStart: day(start), WindowEnd: day(end)}
}

// hoursByDate flattens a result into date -> allocated hours
func hoursByDate(days []WorkloadDay) map[string]float64 {
	m := make(map[string]float64, len(days))
	for _, d := range days {
		m[dateutil.FormatISODate(d.Date)] = d.AllocatedHours
	}
	return m
}

func taskTotals(days []WorkloadDay) map[int64]float64 {
	m := make(map[int64]float64)
	for _, d := range days {
		for _, t := range d.Tasks {
			m[t.TaskID] += t.DailyHours
		}
	}
	return m
}

// 2025-03-03 is a Monday.

func TestAllocate_FrontLoadsSingleTask(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots:    []Slot{slot(1, 12, "2025-03-03", "2025-03-04")},
		Start:    day("2025-03-03"),
		End:      day("2025-03-04"),
	})
	require.NoError(t, err)
	require.Len(t, res.Days, 2)

	assert.Equal(t, 8.0, res.Days[0].AllocatedHours)
	assert.Equal(t, 0.0, res.Days[0].AvailableHours)
	assert.Equal(t, 4.0, res.Days[1].AllocatedHours)
	assert.Equal(t, 4.0, res.Days[1].AvailableHours)
	assert.Equal(t, 8.0, res.Days[1].MaxHours)
	assert.NoError(t, res.Err())
}

func TestAllocate_BalancesOverlappingTasks(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots: []Slot{
			slot(1, 12, "2025-03-03", "2025-03-05"),
			slot(2, 12, "2025-03-03", "2025-03-05"),
		},
		Start: day("2025-03-03"),
		End:   day("2025-03-05"),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"2025-03-03": 8,
		"2025-03-04": 8,
		"2025-03-05": 8,
	}, hoursByDate(res.Days))

	// ties keep input order
	require.Len(t, res.Days[0].Tasks, 1)
	assert.Equal(t, int64(1), res.Days[0].Tasks[0].TaskID)
	require.Len(t, res.Days[1].Tasks, 2)
	assert.Equal(t, []WorkloadTask{
		{TaskID: 1, TaskName: "task", DailyHours: 4},
		{TaskID: 2, TaskName: "task", DailyHours: 4},
	}, res.Days[1].Tasks)

	assert.Equal(t, map[int64]float64{1: 12, 2: 12}, taskTotals(res.Days))
}

func TestAllocate_EarliestDeadlineFirst(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots: []Slot{
			slot(1, 16, "2025-03-03", "2025-03-07"),
			slot(2, 8, "2025-03-03", "2025-03-04"),
		},
		Start: day("2025-03-03"),
		End:   day("2025-03-07"),
	})
	require.NoError(t, err)

	// task 2 ends first, so it is served first on Monday
	require.NotEmpty(t, res.Days[0].Tasks)
	assert.Equal(t, int64(2), res.Days[0].Tasks[0].TaskID)
	assert.Equal(t, 8.0, res.Days[0].Tasks[0].DailyHours)
	assert.Equal(t, map[int64]float64{1: 16, 2: 8}, taskTotals(res.Days))
}

func TestAllocate_HolidayWindowIsUnreachable(t *testing.T) {
	days := fixedDays{"2025-10-01": calendar.DayKindHoliday}
	e := NewEngine(days)

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots:    []Slot{slot(7, 8, "2025-10-01", "2025-10-01")},
		Start:    day("2025-09-29"),
		End:      day("2025-10-03"),
	})
	require.NoError(t, err)

	require.Len(t, res.Unreachable, 1)
	u := res.Unreachable[0]
	assert.Equal(t, int64(7), u.TaskID)
	assert.Equal(t, 8.0, u.Remaining)
	assert.Equal(t, ReasonNoWorkingDay, u.Reason)
	assert.True(t, errors.Is(res.Err(), ErrUnreachableDeadline))

	// holiday is not emitted, the other working days are empty
	assert.Equal(t, map[string]float64{
		"2025-09-29": 0,
		"2025-09-30": 0,
		"2025-10-02": 0,
		"2025-10-03": 0,
	}, hoursByDate(res.Days))
}

func TestAllocate_SaturdayOvertimeFromCalendar(t *testing.T) {
	cal := calendar.NewWorkdayCalendar(nil, nil,
		calendar.WithOvertime(calendar.OvertimeConfig{Weekend: calendar.WeekendSaturday}))
	e := NewEngine(cal)

	// Sat 2025-03-08 .. Sun 2025-03-09
	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots:    []Slot{slot(1, 6, "2025-03-08", "2025-03-09")},
		Start:    day("2025-03-03"),
		End:      day("2025-03-09"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Unreachable)

	var saturday *WorkloadDay
	for i := range res.Days {
		if dateutil.FormatISODate(res.Days[i].Date) == "2025-03-08" {
			saturday = &res.Days[i]
		}
		assert.NotEqual(t, "2025-03-09", dateutil.FormatISODate(res.Days[i].Date), "sunday stays off")
	}
	require.NotNil(t, saturday)
	assert.Equal(t, 6.0, saturday.AllocatedHours)
	assert.True(t, saturday.IsOvertime)
	assert.Len(t, res.Days, 6)
}

func TestAllocate_IncludeOvertimeUsesWeekendInWindow(t *testing.T) {
	e := NewEngine(fixedDays{})
	req := Request{
		Capacity: 8,
		Slots:    []Slot{slot(1, 24, "2025-03-07", "2025-03-10")}, // Fri..Mon
		Start:    day("2025-03-07"),
		End:      day("2025-03-10"),
	}

	without, err := e.Allocate(req)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"2025-03-07": 8,
		"2025-03-10": 16,
	}, hoursByDate(without.Days))

	req.IncludeOvertime = true
	with, err := e.Allocate(req)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"2025-03-07": 8,
		"2025-03-08": 8,
		"2025-03-09": 8,
		"2025-03-10": 0,
	}, hoursByDate(with.Days))
	assert.False(t, with.Days[0].IsOvertime)
	assert.True(t, with.Days[1].IsOvertime)
	assert.True(t, with.Days[2].IsOvertime)
}

func TestAllocate_LastDayForcingOverflows(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots: []Slot{
			slot(1, 16, "2025-03-03", "2025-03-04"),
			slot(2, 8, "2025-03-04", "2025-03-04"),
		},
		Start: day("2025-03-03"),
		End:   day("2025-03-04"),
	})
	require.NoError(t, err)
	require.Len(t, res.Days, 2)

	assert.Equal(t, 8.0, res.Days[0].AllocatedHours)
	assert.False(t, res.Days[0].Overflow())

	tue := res.Days[1]
	assert.Equal(t, 16.0, tue.AllocatedHours)
	assert.Equal(t, 0.0, tue.AvailableHours)
	assert.True(t, tue.Overflow())
	assert.Equal(t, map[int64]float64{1: 16, 2: 8}, taskTotals(res.Days))
}

func TestAllocate_SimulatesBeforeReportStart(t *testing.T) {
	e := NewEngine(fixedDays{})

	tests := []struct {
		name  string
		slots []Slot
		start string
		end   string
		want  map[string]float64
	}{
		{
			name:  "finished before the report opens",
			slots: []Slot{slot(1, 16, "2025-03-03", "2025-03-06")},
			start: "2025-03-05",
			end:   "2025-03-06",
			want:  map[string]float64{"2025-03-05": 0, "2025-03-06": 0},
		},
		{
			name:  "in progress when the report opens",
			slots: []Slot{slot(1, 20, "2025-03-03", "2025-03-05")},
			start: "2025-03-04",
			end:   "2025-03-05",
			want:  map[string]float64{"2025-03-04": 8, "2025-03-05": 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Allocate(Request{Capacity: 8, Slots: tt.slots, Start: day(tt.start), End: day(tt.end)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, hoursByDate(res.Days))
			assert.Equal(t, "2025-03-03", dateutil.FormatISODate(res.SimulationStart))
		})
	}
}

func TestAllocate_DeadlineAfterReportEnd(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots:    []Slot{slot(1, 40, "2025-03-03", "2025-03-14")},
		Start:    day("2025-03-03"),
		End:      day("2025-03-07"),
	})
	require.NoError(t, err)

	for _, d := range res.Days {
		assert.Equal(t, 8.0, d.AllocatedHours, dateutil.FormatISODate(d.Date))
	}
	assert.Empty(t, res.Unreachable, "window still open at report end")
}

func TestAllocate_Conservation(t *testing.T) {
	days := fixedDays{
		"2025-03-12": calendar.DayKindHoliday,
		"2025-03-15": calendar.DayKindMakeupWorkday,
	}
	e := NewEngine(days)
	slots := []Slot{
		slot(1, 7.3, "2025-03-03", "2025-03-05"),
		slot(2, 2.15, "2025-03-04", "2025-03-04"),
		slot(3, 30.1, "2025-03-03", "2025-03-14"),
		slot(4, 0.1, "2025-03-10", "2025-03-17"),
		slot(5, 19.7, "2025-03-11", "2025-03-15"),
		slot(6, 11, "2025-03-13", "2025-03-13"),
	}

	res, err := e.Allocate(Request{Capacity: 6.5, Slots: slots, Start: day("2025-03-01"), End: day("2025-03-21")})
	require.NoError(t, err)
	require.Empty(t, res.Unreachable)

	totals := taskTotals(res.Days)
	for _, s := range slots {
		assert.InDelta(t, s.Effort, totals[s.TaskID], 1e-9, "task %d", s.TaskID)
	}

	for _, d := range res.Days {
		assert.GreaterOrEqual(t, d.AllocatedHours, 0.0)
		assert.GreaterOrEqual(t, d.AvailableHours, 0.0)
		assert.NotEqual(t, "2025-03-12", dateutil.FormatISODate(d.Date), "holiday emitted")

		// capacity only breaks through last-day forcing
		if d.AllocatedHours > d.MaxHours+1e-9 {
			forced := false
			for _, task := range d.Tasks {
				for _, s := range slots {
					if s.TaskID == task.TaskID && lastEffectiveDay(days, s) == dateutil.FormatISODate(d.Date) {
						forced = true
					}
				}
			}
			assert.True(t, forced, "over capacity without a deadline on %s", dateutil.FormatISODate(d.Date))
		}
	}
}

func lastEffectiveDay(days fixedDays, s Slot) string {
	last := ""
	dateutil.EachDay(s.WindowStart, s.WindowEnd, func(d time.Time) bool {
		if days.DayKind(d).IsWorking() {
			last = dateutil.FormatISODate(d)
		}
		return true
	})
	return last
}

func TestAllocate_EmptyWindow(t *testing.T) {
	e := NewEngine(fixedDays{})

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots:    []Slot{slot(3, 5, "2025-03-06", "2025-03-04")},
		Start:    day("2025-03-03"),
		End:      day("2025-03-07"),
	})
	require.NoError(t, err)
	require.Len(t, res.Unreachable, 1)
	assert.Equal(t, ReasonEmptyWindow, res.Unreachable[0].Reason)
	assert.Equal(t, 0.0, res.TotalHours())
}

func TestAllocate_InvalidInput(t *testing.T) {
	e := NewEngine(fixedDays{}, WithMaxSpanDays(31))
	ok := []Slot{slot(1, 8, "2025-03-03", "2025-03-04")}

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing start", Request{Capacity: 8, End: day("2025-03-04")}, "start"},
		{"missing end", Request{Capacity: 8, Start: day("2025-03-04")}, "end"},
		{"start after end", Request{Capacity: 8, Start: day("2025-03-05"), End: day("2025-03-04")}, "range"},
		{"zero capacity", Request{Capacity: 0, Start: day("2025-03-03"), End: day("2025-03-04")}, "capacity"},
		{"negative capacity", Request{Capacity: -2, Start: day("2025-03-03"), End: day("2025-03-04")}, "capacity"},
		{"zero effort slot", Request{Capacity: 8, Slots: []Slot{slot(1, 0, "2025-03-03", "2025-03-04")}, Start: day("2025-03-03"), End: day("2025-03-04")}, "slots"},
		{"span too long", Request{Capacity: 8, Slots: ok, Start: day("2025-03-03"), End: day("2025-05-01")}, "range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Allocate(tt.req)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var inv *InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}

func TestAllocate_ClipsLongLookBack(t *testing.T) {
	e := NewEngine(fixedDays{}, WithMaxSpanDays(31))

	res, err := e.Allocate(Request{
		Capacity: 8,
		Slots: []Slot{
			slot(1, 8, "2024-12-02", "2025-03-04"),
			slot(2, 4, "2025-03-03", "2025-03-04"),
			slot(3, 8, "2024-11-04", "2024-11-29"),
		},
		Start: day("2025-03-03"),
		End:   day("2025-03-04"),
	})
	require.NoError(t, err)

	// 31 days before 2025-03-03
	assert.Equal(t, day("2025-01-31"), res.SimulationStart)
	require.Len(t, res.Clipped, 2)
	assert.Equal(t, int64(1), res.Clipped[0].TaskID)
	assert.Equal(t, day("2024-12-02"), res.Clipped[0].WindowStart)
	assert.Equal(t, day("2025-01-31"), res.Clipped[0].SimulatedFrom)
	assert.Equal(t, int64(3), res.Clipped[1].TaskID)
	assert.True(t, res.Clipped[1].SimulatedFrom.IsZero())

	// task 1 is done on 2025-01-31, before the report opens
	assert.Equal(t, map[string]float64{"2025-03-03": 4, "2025-03-04": 0}, hoursByDate(res.Days))
	assert.Empty(t, res.Unreachable)
}

func TestAllocate_DoesNotMutateSlots(t *testing.T) {
	e := NewEngine(fixedDays{})
	slots := []Slot{{TaskID: 1, Effort: 8, WindowStart: time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC), WindowEnd: day("2025-03-04")}}

	_, err := e.Allocate(Request{Capacity: 8, Slots: slots, Start: day("2025-03-03"), End: day("2025-03-04")})
	require.NoError(t, err)
	assert.Equal(t, 15, slots[0].WindowStart.Hour())
	assert.Equal(t, 8.0, slots[0].Effort)
}
