package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/internal/store"
	"github.com/username/workload-planner/pkg/dateutil"
)

// withApp opens the application for the duration of fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func workloadCmd() *cobra.Command {
	var (
		developerID int64
		from, to    string
		overtime    bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Show the day-by-day workload of one developer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !cmd.Flags().Changed("overtime") {
					overtime = a.cfg.Schedule.IncludeOvertime
				}

				logger.Info("Computing workload",
					zap.Int64("developer_id", developerID),
					zap.String("from", from),
					zap.String("to", to),
					zap.Bool("overtime", overtime))

				report, err := a.planner.DeveloperWorkload(ctx, developerID, from, to, overtime)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(report)
				}
				printDeveloperReport(report)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&developerID, "developer", 0, "Developer ID")
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&overtime, "overtime", false, "Use non-working days inside task windows as overtime")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.MarkFlagRequired("developer")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func teamCmd() *cobra.Command {
	var (
		from, to string
		overtime bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show the workload of every active developer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !cmd.Flags().Changed("overtime") {
					overtime = a.cfg.Schedule.IncludeOvertime
				}

				report, err := a.planner.TeamWorkload(ctx, from, to, overtime)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(report)
				}
				for i := range report.Developers {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printDeveloperReport(&report.Developers[i])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&overtime, "overtime", false, "Use non-working days inside task windows as overtime")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func eventsCmd() *cobra.Command {
	var (
		from, to    string
		developerID int64
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print tasks as calendar events (JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var dev *int64
				if cmd.Flags().Changed("developer") {
					dev = &developerID
				}
				events, err := a.planner.CalendarEvents(ctx, from, to, dev)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&developerID, "developer", 0, "Only tasks owned by this developer")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func holidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the holiday cache",
	}

	var year int
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch holidays and makeup workdays for a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if year == 0 {
					year = dateutil.Today().Year()
				}
				n, err := a.calendar.Sync(ctx, year)
				if err != nil {
					return fmt.Errorf("failed to sync %d: %w", year, err)
				}
				fmt.Fprintf(out, "✅ Synced %d day facts for %d\n", n, year)
				return nil
			})
		},
	}
	syncCmd.Flags().IntVar(&year, "year", 0, "Year to sync (default: current year)")

	var date, until string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Show how a date is classified",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				d, err := dateutil.ParseISODate(date)
				if err != nil {
					return err
				}
				last := d
				if until != "" {
					if last, err = dateutil.ParseISODate(until); err != nil {
						return err
					}
					if last.Before(d) {
						return fmt.Errorf("--until %s is before --date %s", until, date)
					}
				}
				a.calendar.EnsureCached(ctx, d, last)

				kind := a.calendar.DayKind(d)
				fmt.Fprintf(out, "%s (%s): %s", dateutil.FormatISODate(d), d.Weekday(), kind)
				if fact, ok := a.calendar.Fact(d); ok && fact.Name != "" {
					fmt.Fprintf(out, " - %s", fact.Name)
				}
				fmt.Fprintf(out, "\nWorking day: %t\n", kind.IsWorking())
				if until != "" {
					// CountWorkdays never reports fewer than 1
					fmt.Fprintf(out, "Working days %s..%s: %d\n",
						dateutil.FormatISODate(d), dateutil.FormatISODate(last), a.calendar.CountWorkdays(d, last))
				}
				return nil
			})
		},
	}
	checkCmd.Flags().StringVar(&date, "date", "", "Date to check (YYYY-MM-DD)")
	checkCmd.Flags().StringVar(&until, "until", "", "Also count working days from --date through this date")
	checkCmd.MarkFlagRequired("date")

	cmd.AddCommand(syncCmd, checkCmd)
	return cmd
}

func overtimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overtime",
		Short: "Show or change which non-working days count as overtime",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the overtime configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				cfg, invalid, err := a.store.LoadOvertimeConfig(ctx)
				if err != nil {
					return err
				}
				printOvertime(cfg)
				if len(invalid) > 0 {
					fmt.Fprintf(out, "Ignored invalid dates: %s\n", strings.Join(invalid, ", "))
				}
				return nil
			})
		},
	}

	var (
		weekend string
		dates   []string
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the overtime configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				saved, err := a.store.SaveOvertimeConfig(ctx, calendar.OvertimeConfig{
					Weekend:     calendar.WeekendMode(weekend),
					CustomDates: dates,
				})
				if err != nil {
					return err
				}
				logger.Info("Overtime settings updated",
					zap.String("weekend", string(saved.Weekend)),
					zap.Strings("custom_dates", saved.CustomDates))
				printOvertime(saved)
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&weekend, "weekend", "none", "Weekend days worked as overtime: none, saturday, sunday or both")
	setCmd.Flags().StringSliceVar(&dates, "dates", nil, "Extra overtime dates (YYYY-MM-DD, comma separated)")

	cmd.AddCommand(showCmd, setCmd)
	return cmd
}

func developerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "developer",
		Short: "Manage developers",
	}

	var (
		name  string
		hours float64
		color string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a developer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive, got %v", hours)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				dev, err := a.store.CreateDeveloper(ctx, name, hours, color)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✅ Developer #%d %s (%.1fh/day)\n", dev.ID, dev.Name, dev.MaxHoursPerDay)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "Developer name")
	addCmd.Flags().Float64Var(&hours, "hours", 8, "Capacity in hours per day")
	addCmd.Flags().StringVar(&color, "color", "", "Avatar color (#rrggbb)")
	addCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List developers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				devs, err := a.store.ListDevelopers(ctx)
				if err != nil {
					return err
				}
				printDevelopers(devs)
				return nil
			})
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var (
		owner      int64
		name       string
		start, end string
		hours      float64
		taskType   string
		priority   string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a planned task",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range []string{start, end} {
				if _, err := dateutil.ParseISODate(d); err != nil {
					return err
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				nt := store.NewTask{
					Name:         name,
					OwnerID:      &owner,
					PlannedStart: &start,
					PlannedEnd:   &end,
				}
				if cmd.Flags().Changed("hours") {
					nt.PlannedHours = &hours
				}
				if taskType != "" {
					nt.TaskType = &taskType
				}
				if priority != "" {
					nt.Priority = &priority
				}

				task, err := a.store.CreateTask(ctx, nt)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✅ Task #%d %s: %s .. %s\n", task.ID, task.Name, *task.PlannedStart, *task.PlannedEnd)
				return nil
			})
		},
	}
	addCmd.Flags().Int64Var(&owner, "owner", 0, "Owner developer ID")
	addCmd.Flags().StringVar(&name, "name", "", "Task name")
	addCmd.Flags().StringVar(&start, "start", "", "Planned start (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&end, "end", "", "Planned end, inclusive (YYYY-MM-DD)")
	addCmd.Flags().Float64Var(&hours, "hours", 0, "Planned effort in hours")
	addCmd.Flags().StringVar(&taskType, "type", "", "Task type (development, testing, ...)")
	addCmd.Flags().StringVar(&priority, "priority", "", "Priority label")
	for _, f := range []string{"owner", "name", "start", "end"} {
		addCmd.MarkFlagRequired(f)
	}

	var (
		taskID int64
		status string
	)
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Change a task's status (todo, in_progress, done, cancelled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.ValidStatus(status) {
				return fmt.Errorf("%w %q", store.ErrInvalidStatus, status)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
					return err
				}
				fmt.Fprintf(out, "✅ Task #%d is now %s\n", taskID, status)
				return nil
			})
		},
	}
	statusCmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	statusCmd.Flags().StringVar(&status, "status", "", "New status")
	statusCmd.MarkFlagRequired("id")
	statusCmd.MarkFlagRequired("status")

	cmd.AddCommand(addCmd, statusCmd)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
