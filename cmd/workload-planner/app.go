package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/internal/config"
	"github.com/username/workload-planner/internal/metrics"
	"github.com/username/workload-planner/internal/schedule"
	"github.com/username/workload-planner/internal/store"
)

// app bundles the components every command needs
type app struct {
	cfg      *config.Config
	store    *store.Store
	calendar *calendar.WorkdayCalendar
	planner  *schedule.Planner
	registry *prometheus.Registry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	overtime, invalid, err := st.LoadOvertimeConfig(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load overtime settings: %w", err)
	}
	if len(invalid) > 0 {
		logger.Warn("Ignoring invalid overtime dates", zap.Strings("dates", invalid))
	}

	cal := calendar.NewWorkdayCalendar(buildSource(cfg, logger), st,
		calendar.WithLogger(logger),
		calendar.WithSyncObserver(collector.ObserveSync),
		calendar.WithRetryAfter(cfg.Calendar.GetRetryAfter()),
		calendar.WithOvertime(overtime))

	engine := schedule.NewEngine(cal,
		schedule.WithMaxSpanDays(cfg.Schedule.GetMaxSpanDays()),
		schedule.WithEngineLogger(logger))

	planner := schedule.NewPlanner(st, cal, engine,
		schedule.WithRecorder(collector),
		schedule.WithWorkers(cfg.Schedule.GetWorkers()),
		schedule.WithPlannerLogger(logger))

	return &app{
		cfg:      cfg,
		store:    st,
		calendar: cal,
		planner:  planner,
		registry: registry,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildSource assembles the holiday source chain from configuration:
// the configured primary, then the holiday-cn mirror, then the local file.
func buildSource(cfg *config.Config, logger *zap.Logger) calendar.HolidaySource {
	c := cfg.Calendar
	timeout := c.GetTimeout()

	var file calendar.HolidaySource
	if c.FallbackFile != "" {
		file = calendar.NewFileSource(c.FallbackFile, logger)
	}

	switch c.Source {
	case config.SourceFile:
		logger.Debug("Using local holiday file", zap.String("path", c.FallbackFile))
		return file

	case config.SourceHolidayCN:
		logger.Debug("Using holiday-cn calendar")
		return withFallback(calendar.NewHolidayCNSource(c.FallbackURL, timeout, logger), file, logger)

	default:
		logger.Debug("Using timor.tech calendar API")
		var fallback calendar.HolidaySource = file
		if c.FallbackURL != "" {
			fallback = withFallback(calendar.NewHolidayCNSource(c.FallbackURL, timeout, logger), file, logger)
		}
		return withFallback(calendar.NewTimorSource(c.APIURL, timeout, logger), fallback, logger)
	}
}

func withFallback(primary, fallback calendar.HolidaySource, logger *zap.Logger) calendar.HolidaySource {
	if fallback == nil {
		return primary
	}
	return calendar.NewCompositeSource(primary, fallback, logger)
}
