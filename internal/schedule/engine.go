package schedule

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/pkg/dateutil"
)

// DefaultMaxSpanDays bounds the simulated range of a single run
const DefaultMaxSpanDays = 1095

// DayClassifier classifies calendar dates. *calendar.WorkdayCalendar implements it.
type DayClassifier interface {
	DayKind(date time.Time) calendar.DayKind
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithMaxSpanDays limits how many days one run may simulate
func WithMaxSpanDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.maxSpanDays = days
		}
	}
}

// WithEngineLogger sets the logger used for per-day traces
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine allocates a developer's daily capacity across task slots,
// earliest deadline first, front-loaded.
type Engine struct {
	days        DayClassifier
	maxSpanDays int
	logger      *zap.Logger
}

// NewEngine creates an Engine reading working days from days
func NewEngine(days DayClassifier, opts ...EngineOption) *Engine {
	e := &Engine{
		days:        days,
		maxSpanDays: DefaultMaxSpanDays,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is the input of one allocation run
type Request struct {
	Capacity        float64 // hours per day
	Slots           []Slot
	Start           time.Time // first reported day
	End             time.Time // last reported day, inclusive
	IncludeOvertime bool      // treat non-working days inside task windows as overtime
}

// slotState is the mutable copy of a Slot for one run
type slotState struct {
	Slot
	remaining decimal.Decimal
	endIdx    int // horizon index of WindowEnd, -1 past the horizon
}

// horizon holds per-day classification for [start, start+len)
type horizon struct {
	start    time.Time
	kinds    []calendar.DayKind
	overtime []bool // precomputed overtime day
	prefix   []int  // prefix[i] = effective days in [0, i)
}

func (h *horizon) index(d time.Time) int {
	return dateutil.DaysBetween(h.start, d)
}

func (h *horizon) effective(i int) bool {
	return h.kinds[i].IsWorking() || h.overtime[i]
}

// countEffective counts effective days in [from, to] by index
func (h *horizon) countEffective(from, to int) int {
	if to < from {
		return 0
	}
	return h.prefix[to+1] - h.prefix[from]
}

// Allocate simulates every day from the earliest slot start (or Start, if
// earlier) through End and returns one WorkloadDay per effective working day
// in [Start, End]. Days before Start are simulated but not emitted. The
// look-back before Start is limited to maxSpanDays; windows opening earlier
// are clipped and listed in Result.Clipped.
func (e *Engine) Allocate(req Request) (*Result, error) {
	start, end, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	// 1. Simulation range
	simStart, horizonEnd := e.SimulationRange(start, end, req.Slots)

	// slots are copied so the caller's slice is never touched
	input := make([]Slot, 0, len(req.Slots))
	var clipped []ClippedWindow
	for _, s := range req.Slots {
		s.WindowStart = dateutil.Normalize(s.WindowStart)
		s.WindowEnd = dateutil.Normalize(s.WindowEnd)
		if s.WindowStart.Before(simStart) {
			cw := ClippedWindow{TaskID: s.TaskID, TaskName: s.TaskName, WindowStart: s.WindowStart, SimulatedFrom: simStart}
			if s.WindowEnd.Before(simStart) {
				// the whole window lies before the look-back limit
				cw.SimulatedFrom = time.Time{}
				clipped = append(clipped, cw)
				continue
			}
			s.WindowStart = simStart
			clipped = append(clipped, cw)
		}
		input = append(input, s)
	}

	// 2. Calendar and overtime days
	h := e.buildHorizon(simStart, horizonEnd, input, req.IncludeOvertime)

	slots := make([]*slotState, len(input))
	for i, s := range input {
		st := &slotState{Slot: s, remaining: decimal.NewFromFloat(s.Effort), endIdx: -1}
		if !s.WindowEnd.After(horizonEnd) && !s.WindowEnd.Before(simStart) {
			st.endIdx = h.index(s.WindowEnd)
		}
		slots[i] = st
	}

	capacity := decimal.NewFromFloat(req.Capacity)
	result := &Result{SimulationStart: simStart, Clipped: clipped}

	// 3. Walk the days
	lastIdx := h.index(end)
	for i := 0; i <= lastIdx; i++ {
		result.SimulatedDays++
		if !h.effective(i) {
			continue
		}
		day := dateutil.AddDays(simStart, i)
		emit := !day.Before(start)

		active := make([]*slotState, 0, len(slots))
		for _, s := range slots {
			if s.remaining.IsPositive() && !day.Before(s.WindowStart) && !day.After(s.WindowEnd) {
				active = append(active, s)
			}
		}
		slices.SortStableFunc(active, func(a, b *slotState) int {
			return a.WindowEnd.Compare(b.WindowEnd)
		})

		left := capacity
		allocated := decimal.Zero
		var tasks []WorkloadTask
		for _, s := range active {
			lastChance := s.endIdx >= 0 && h.countEffective(i, s.endIdx) <= 1

			var alloc decimal.Decimal
			if lastChance {
				alloc = s.remaining
			} else {
				alloc = decimal.Min(s.remaining, decimal.Max(left, decimal.Zero))
			}
			if !alloc.IsPositive() {
				continue
			}

			s.remaining = s.remaining.Sub(alloc)
			left = left.Sub(alloc)
			allocated = allocated.Add(alloc)
			tasks = append(tasks, WorkloadTask{
				TaskID:     s.TaskID,
				TaskName:   s.TaskName,
				DailyHours: alloc.InexactFloat64(),
			})
		}

		if left.IsNegative() {
			e.logger.Debug("Last-day forcing exceeded capacity",
				zap.String("date", dateutil.FormatISODate(day)),
				zap.String("overflow", left.Neg().String()))
		}

		if !emit {
			continue
		}

		available := decimal.Max(capacity.Sub(allocated), decimal.Zero)
		result.Days = append(result.Days, WorkloadDay{
			Date:           day,
			AllocatedHours: allocated.InexactFloat64(),
			MaxHours:       req.Capacity,
			AvailableHours: available.InexactFloat64(),
			IsOvertime:     h.overtime[i] || h.kinds[i] == calendar.DayKindOvertime,
			Tasks:          tasks,
		})
	}

	// 4. Diagnostics for windows that closed with effort left
	for _, s := range slots {
		if !s.remaining.IsPositive() || s.WindowEnd.After(end) {
			continue
		}
		reason := ReasonNoWorkingDay
		if s.WindowStart.After(s.WindowEnd) {
			reason = ReasonEmptyWindow
		}
		result.Unreachable = append(result.Unreachable, &UnreachableDeadlineError{
			TaskID:      s.TaskID,
			TaskName:    s.TaskName,
			Remaining:   s.remaining.InexactFloat64(),
			WindowStart: s.WindowStart,
			WindowEnd:   s.WindowEnd,
			Reason:      reason,
		})
	}

	e.logger.Debug("Allocation finished",
		zap.String("simulation_start", dateutil.FormatISODate(simStart)),
		zap.Int("simulated_days", result.SimulatedDays),
		zap.Int("emitted_days", len(result.Days)),
		zap.Int("slots", len(slots)),
		zap.Int("unreachable", len(result.Unreachable)))

	return result, nil
}

// SimulationRange returns the first simulated day and the last day whose
// calendar the run reads, for a report over [start, end] and the given slots.
// The first day is at most maxSpanDays before start; the last is at most
// maxSpanDays after end.
func (e *Engine) SimulationRange(start, end time.Time, slots []Slot) (time.Time, time.Time) {
	start, end = dateutil.Normalize(start), dateutil.Normalize(end)
	simStart, latestEnd := start, end
	for _, s := range slots {
		simStart = dateutil.MinDate(simStart, dateutil.Normalize(s.WindowStart))
		latestEnd = dateutil.MaxDate(latestEnd, dateutil.Normalize(s.WindowEnd))
	}
	simStart = dateutil.MaxDate(simStart, dateutil.AddDays(start, -e.maxSpanDays))
	// deadlines past End still need remaining-day counts
	horizonEnd := dateutil.MinDate(latestEnd, dateutil.AddDays(end, e.maxSpanDays))
	return simStart, horizonEnd
}

// ValidateRange checks a report range before any work is done for it
func (e *Engine) ValidateRange(start, end time.Time) error {
	_, _, err := e.validate(Request{Start: start, End: end, Capacity: 1})
	return err
}

func (e *Engine) validate(req Request) (time.Time, time.Time, error) {
	if req.Start.IsZero() {
		return time.Time{}, time.Time{}, invalidInput("start", "missing")
	}
	if req.End.IsZero() {
		return time.Time{}, time.Time{}, invalidInput("end", "missing")
	}
	start, end := dateutil.Normalize(req.Start), dateutil.Normalize(req.End)
	if start.After(end) {
		return time.Time{}, time.Time{}, invalidInput("range", "start %s is after end %s",
			dateutil.FormatISODate(start), dateutil.FormatISODate(end))
	}
	if span := dateutil.DaysBetween(start, end) + 1; span > e.maxSpanDays {
		return time.Time{}, time.Time{}, invalidInput("range", "%d days requested, limit is %d", span, e.maxSpanDays)
	}
	if math.IsNaN(req.Capacity) || math.IsInf(req.Capacity, 0) || req.Capacity <= 0 {
		return time.Time{}, time.Time{}, invalidInput("capacity", "must be a positive number of hours, got %v", req.Capacity)
	}
	for i, s := range req.Slots {
		if math.IsNaN(s.Effort) || math.IsInf(s.Effort, 0) || s.Effort <= 0 {
			return time.Time{}, time.Time{}, invalidInput("slots", "slot %d (task %d) has effort %v", i, s.TaskID, s.Effort)
		}
		if s.WindowStart.IsZero() || s.WindowEnd.IsZero() {
			return time.Time{}, time.Time{}, invalidInput("slots", "slot %d (task %d) has no window", i, s.TaskID)
		}
	}
	return start, end, nil
}

func (e *Engine) buildHorizon(start, end time.Time, slots []Slot, includeOvertime bool) *horizon {
	n := dateutil.DaysBetween(start, end) + 1
	h := &horizon{
		start:    start,
		kinds:    make([]calendar.DayKind, n),
		overtime: make([]bool, n),
		prefix:   make([]int, n+1),
	}

	for i := 0; i < n; i++ {
		h.kinds[i] = e.days.DayKind(dateutil.AddDays(start, i))
	}

	if includeOvertime {
		for _, s := range slots {
			from := dateutil.MaxDate(s.WindowStart, start)
			to := dateutil.MinDate(s.WindowEnd, end)
			for i := h.index(from); i <= h.index(to); i++ {
				if !h.kinds[i].IsWorking() {
					h.overtime[i] = true
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		h.prefix[i+1] = h.prefix[i]
		if h.effective(i) {
			h.prefix[i+1]++
		}
	}

	return h
}
