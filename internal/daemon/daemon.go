package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a refresh is requested while another one is in progress
var ErrAlreadyRunning = errors.New("refresh already in progress")

// Syncer re-fetches holiday facts for a year. *calendar.WorkdayCalendar implements it.
type Syncer interface {
	Sync(ctx context.Context, year int) (int, error)
}

// Status describes the refresher state
type Status struct {
	Running     bool        `json:"running"`
	Interval    string      `json:"interval"`
	LastRunTime time.Time   `json:"last_run_time"`
	LastError   string      `json:"last_error,omitempty"`
	Synced      map[int]int `json:"synced,omitempty"` // year -> facts stored by the last run
}

// Refresher keeps the holiday cache fresh by re-syncing the current and
// next year on a fixed interval.
type Refresher struct {
	syncer   Syncer
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu          sync.Mutex // protects the fields below
	syncRunning bool
	lastRunTime time.Time
	lastErr     error
	synced      map[int]int
}

// NewRefresher creates a refresher that syncs every interval
func NewRefresher(syncer Syncer, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		syncer:   syncer,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	r.logger.Info("Holiday refresher started", zap.Duration("interval", r.interval))

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Holiday refresher stopped")
			return nil

		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if err := r.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			r.logger.Warn("Refresh already running, skipping tick")
			return
		}
		r.logger.Error("Holiday refresh failed", zap.Error(err))
	}
}

// RunOnce syncs the current and the next year. Concurrent calls do not
// overlap: a second caller gets ErrAlreadyRunning.
func (r *Refresher) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	if r.syncRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.syncRunning = true
	r.mu.Unlock()

	year := r.now().Year()
	synced := make(map[int]int, 2)
	var errs []error
	for _, y := range []int{year, year + 1} {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := r.syncer.Sync(ctx, y)
		if err != nil {
			errs = append(errs, fmt.Errorf("year %d: %w", y, err))
			continue
		}
		synced[y] = n
	}
	err := errors.Join(errs...)

	r.mu.Lock()
	r.syncRunning = false
	r.lastRunTime = r.now()
	r.lastErr = err
	r.synced = synced
	r.mu.Unlock()

	if err == nil {
		r.logger.Info("Holiday refresh completed",
			zap.Int("year", year),
			zap.Int("current_year_facts", synced[year]),
			zap.Int("next_year_facts", synced[year+1]))
	}
	return err
}

// GetStatus returns the refresher state
func (r *Refresher) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Running:     r.syncRunning,
		Interval:    r.interval.String(),
		LastRunTime: r.lastRunTime,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	if len(r.synced) > 0 {
		st.Synced = make(map[int]int, len(r.synced))
		for y, n := range r.synced {
			st.Synced[y] = n
		}
	}
	return st
}
