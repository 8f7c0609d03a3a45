package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync results
const (
	SyncOK     = "ok"
	SyncFailed = "error"
)

// Collector records allocation and holiday sync metrics in Prometheus.
// It satisfies schedule.Recorder and provides a calendar sync observer.
type Collector struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	syncs       *prometheus.CounterVec
	syncedFacts *prometheus.GaugeVec
	unreachable prometheus.Counter
}

// NewCollector registers the planner metrics on reg.
// A nil registerer defaults to the global Prometheus registerer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workload_allocation_runs_total",
		Help: "Total number of allocation runs by outcome",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workload_allocation_duration_seconds",
		Help:    "Time spent loading tasks and simulating one developer",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workload_holiday_sync_total",
		Help: "Total number of holiday sync attempts by result",
	}, []string{"result"})
	syncedFacts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workload_holiday_facts",
		Help: "Number of holiday facts stored by the last successful sync of a year",
	}, []string{"year"})
	unreachable := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workload_unreachable_deadlines_total",
		Help: "Total number of tasks whose effort could not be consumed within their window",
	})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if syncs, err = register(reg, syncs); err != nil {
		return nil, err
	}
	if syncedFacts, err = register(reg, syncedFacts); err != nil {
		return nil, err
	}
	if unreachable, err = register(reg, unreachable); err != nil {
		return nil, err
	}

	return &Collector{
		runs:        runs,
		duration:    duration,
		syncs:       syncs,
		syncedFacts: syncedFacts,
		unreachable: unreachable,
	}, nil
}

// register reuses an existing collector when the same metric was registered before
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveAllocation counts one allocation run and its duration
func (c *Collector) ObserveAllocation(outcome string, elapsed time.Duration) {
	c.runs.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddUnreachable adds n unreachable deadlines
func (c *Collector) AddUnreachable(n int) {
	if n > 0 {
		c.unreachable.Add(float64(n))
	}
}

// ObserveSync records a holiday sync attempt. Its signature matches calendar.SyncObserver.
func (c *Collector) ObserveSync(year, count int, err error) {
	if err != nil {
		c.syncs.WithLabelValues(SyncFailed).Inc()
		return
	}
	c.syncs.WithLabelValues(SyncOK).Inc()
	c.syncedFacts.WithLabelValues(strconv.Itoa(year)).Set(float64(count))
}
