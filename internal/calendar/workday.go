package calendar

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/username/workload-planner/pkg/dateutil"
)

const (
	minSyncYear = 1900
	maxSyncYear = 9999

	// DefaultRetryAfter is how long EnsureCached leaves a failed or empty year alone
	DefaultRetryAfter = time.Hour
)

// SyncObserver is notified after every sync attempt
type SyncObserver func(year, count int, err error)

// Option configures a WorkdayCalendar
type Option func(*WorkdayCalendar)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *WorkdayCalendar) {
		c.logger = logger
	}
}

// WithSyncObserver registers a hook called after each Sync
func WithSyncObserver(fn SyncObserver) Option {
	return func(c *WorkdayCalendar) {
		c.observer = fn
	}
}

// WithRetryAfter sets how long EnsureCached skips a year whose last sync failed
// or returned no facts
func WithRetryAfter(d time.Duration) Option {
	return func(c *WorkdayCalendar) {
		if d > 0 {
			c.retryAfter = d
		}
	}
}

// WithOvertime sets the initial overtime configuration
func WithOvertime(cfg OvertimeConfig) Option {
	return func(c *WorkdayCalendar) {
		c.setOvertime(cfg)
	}
}

type yearFacts map[string]DayFact // key: YYYY-MM-DD

type overtimeSnapshot struct {
	cfg   OvertimeConfig
	dates map[string]bool
}

// WorkdayCalendar answers working-day queries from cached holiday facts,
// the Monday-Friday rule and the overtime configuration, in that order.
type WorkdayCalendar struct {
	source   HolidaySource
	store    FactStore
	logger   *zap.Logger
	observer SyncObserver

	mu       sync.RWMutex
	years    map[int]yearFacts
	overtime overtimeSnapshot

	// serializes Sync; guards missed
	syncMu     sync.Mutex
	missed     map[int]time.Time // year -> last failed or empty sync
	retryAfter time.Duration
	now        func() time.Time
}

// NewWorkdayCalendar creates a calendar backed by source and store
func NewWorkdayCalendar(source HolidaySource, store FactStore, opts ...Option) *WorkdayCalendar {
	c := &WorkdayCalendar{
		source:     source,
		store:      store,
		logger:     zap.NewNop(),
		years:      make(map[int]yearFacts),
		missed:     make(map[int]time.Time),
		retryAfter: DefaultRetryAfter,
		now:        time.Now,
	}
	c.setOvertime(DefaultOvertimeConfig())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DayKind classifies date:
// holiday fact, then makeup workday fact, then Monday-Friday, then overtime config.
func (c *WorkdayCalendar) DayKind(date time.Time) DayKind {
	date = dateutil.Normalize(date)
	key := dateutil.FormatISODate(date)

	c.mu.RLock()
	fact, ok := c.years[date.Year()][key]
	overtime := c.overtime
	c.mu.RUnlock()

	if ok {
		if fact.IsHoliday {
			return DayKindHoliday
		}
		if fact.IsMakeupWorkday {
			return DayKindMakeupWorkday
		}
	}

	if dateutil.IsWeekday(date) {
		return DayKindWorkday
	}

	if overtime.cfg.Weekend.covers(date.Weekday()) || overtime.dates[key] {
		return DayKindOvertime
	}

	return DayKindWeekend
}

// IsWorkday reports whether date counts as a working day
func (c *WorkdayCalendar) IsWorkday(date time.Time) bool {
	return c.DayKind(date).IsWorking()
}

// Fact returns the cached fact for date, if any
func (c *WorkdayCalendar) Fact(date time.Time) (DayFact, bool) {
	date = dateutil.Normalize(date)

	c.mu.RLock()
	defer c.mu.RUnlock()

	fact, ok := c.years[date.Year()][dateutil.FormatISODate(date)]
	return fact, ok
}

// CountWorkdays counts working days in [start, end].
// The result is never below 1, even for ranges without a single working day.
func (c *WorkdayCalendar) CountWorkdays(start, end time.Time) int {
	count := 0
	dateutil.EachDay(start, end, func(d time.Time) bool {
		if c.IsWorkday(d) {
			count++
		}
		return true
	})
	if count < 1 {
		count = 1
	}
	return count
}

// CachedFacts returns the number of facts held in memory for year
func (c *WorkdayCalendar) CachedFacts(year int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.years[year])
}

// Sync fetches the facts for year from the holiday source, replaces the
// stored facts for that year and swaps the in-memory cache. Returns the
// number of facts stored.
func (c *WorkdayCalendar) Sync(ctx context.Context, year int) (int, error) {
	if year < minSyncYear || year > maxSyncYear {
		return 0, fmt.Errorf("%w: %d out of range [%d, %d]", ErrInvalidYear, year, minSyncYear, maxSyncYear)
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	return c.syncAndNotify(ctx, year)
}

// syncAndNotify must be called with syncMu held
func (c *WorkdayCalendar) syncAndNotify(ctx context.Context, year int) (int, error) {
	n, err := c.sync(ctx, year)
	if err != nil || n == 0 {
		c.missed[year] = c.now()
	} else {
		delete(c.missed, year)
	}
	if c.observer != nil {
		c.observer(year, n, err)
	}
	return n, err
}

func (c *WorkdayCalendar) sync(ctx context.Context, year int) (int, error) {
	c.logger.Debug("Syncing holiday facts",
		zap.String("source", c.source.Name()),
		zap.Int("year", year))

	facts, err := c.source.FetchYear(ctx, year)
	if err != nil {
		return 0, err
	}

	built := make(yearFacts, len(facts))
	for _, f := range facts {
		f.Date = dateutil.Normalize(f.Date)
		if f.Date.Year() != year {
			c.logger.Warn("Skipping fact outside requested year",
				zap.String("date", dateutil.FormatISODate(f.Date)),
				zap.Int("year", year))
			continue
		}
		f.Year = year
		// later entries for the same date win
		built[dateutil.FormatISODate(f.Date)] = f
	}

	stored := make([]DayFact, 0, len(built))
	for _, f := range built {
		stored = append(stored, f)
	}
	slices.SortFunc(stored, func(a, b DayFact) int {
		return a.Date.Compare(b.Date)
	})

	if c.store != nil {
		if err := c.store.ReplaceYear(ctx, year, stored); err != nil {
			return 0, fmt.Errorf("failed to store holiday facts: %w", err)
		}
	}

	c.mu.Lock()
	c.years[year] = built
	c.mu.Unlock()

	c.logger.Info("Holiday facts synced",
		zap.String("source", c.source.Name()),
		zap.Int("year", year),
		zap.Int("count", len(stored)))

	return len(stored), nil
}

// EnsureCached makes sure every year touched by [start, end] has facts in
// memory: first from the fact store, then from the holiday source. Sync
// failures are logged and swallowed; affected years fall back to the
// overtime and weekday rules. A year whose sync failed or returned no facts
// is not retried until the retry interval has passed.
func (c *WorkdayCalendar) EnsureCached(ctx context.Context, start, end time.Time) {
	for _, year := range dateutil.YearsBetween(start, end) {
		if c.CachedFacts(year) > 0 {
			continue
		}
		c.ensureYear(ctx, year)
	}
}

func (c *WorkdayCalendar) ensureYear(ctx context.Context, year int) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	// another caller may have filled the year while we waited
	if c.CachedFacts(year) > 0 {
		return
	}
	if at, ok := c.missed[year]; ok && c.now().Sub(at) < c.retryAfter {
		return
	}

	if c.loadFromStore(ctx, year) > 0 {
		return
	}

	if year < minSyncYear || year > maxSyncYear {
		c.missed[year] = c.now()
		return
	}

	n, err := c.syncAndNotify(ctx, year)
	if err != nil {
		c.logger.Warn("Failed to sync holidays, using weekday fallback",
			zap.Int("year", year),
			zap.Error(err))
		return
	}
	c.logger.Info("Synced holiday entries", zap.Int("year", year), zap.Int("count", n))
}

func (c *WorkdayCalendar) loadFromStore(ctx context.Context, year int) int {
	if c.store == nil {
		return 0
	}

	facts, err := c.store.LoadYear(ctx, year)
	if err != nil {
		c.logger.Warn("Failed to load cached holidays",
			zap.Int("year", year),
			zap.Error(err))
		return 0
	}
	if len(facts) == 0 {
		return 0
	}

	built := make(yearFacts, len(facts))
	for _, f := range facts {
		built[dateutil.FormatISODate(f.Date)] = f
	}

	c.mu.Lock()
	c.years[year] = built
	c.mu.Unlock()

	c.logger.Debug("Loaded holiday facts from store",
		zap.Int("year", year),
		zap.Int("count", len(built)))

	return len(built)
}

// SetOvertime replaces the overtime configuration
func (c *WorkdayCalendar) SetOvertime(cfg OvertimeConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setOvertime(cfg)
}

func (c *WorkdayCalendar) setOvertime(cfg OvertimeConfig) {
	dates := make(map[string]bool, len(cfg.CustomDates))
	for _, d := range cfg.CustomDates {
		dates[d] = true
	}
	c.overtime = overtimeSnapshot{cfg: cfg, dates: dates}
}

// Overtime returns the current overtime configuration
func (c *WorkdayCalendar) Overtime() OvertimeConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := c.overtime.cfg
	cfg.CustomDates = append([]string{}, cfg.CustomDates...)
	return cfg
}
