package main

import (
	"fmt"
	"strings"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/internal/schedule"
	"github.com/username/workload-planner/internal/store"
	"github.com/username/workload-planner/pkg/dateutil"
)

func printDeveloperReport(r *schedule.DeveloperReport) {
	fmt.Fprintf(out, "\n📊 %s (#%d): %s .. %s\n", r.DeveloperName, r.DeveloperID, r.Start, r.End)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")

	if r.Error != "" {
		fmt.Fprintf(out, "  ❌ Failed: %s\n", r.Error)
		return
	}

	if len(r.Days) == 0 {
		fmt.Fprintln(out, "  No allocatable work in this range")
	} else {
		fmt.Fprintln(out, "  Date         | Alloc  | Free   | Tasks")
		fmt.Fprintln(out, "---------------+--------+--------+----------------")
		var total float64
		for _, d := range r.Days {
			total += d.AllocatedHours
			fmt.Fprintf(out, "  %s %s | %5.1fh | %5.1fh | %s\n",
				dateutil.FormatISODate(d.Date),
				dayMarker(d),
				d.AllocatedHours,
				d.AvailableHours,
				taskSummary(d.Tasks))
		}
		fmt.Fprintf(out, "\n  Total allocated: %.1fh over %d working day(s)\n", total, len(r.Days))
		fmt.Fprintln(out, "\nLegend: '*' = overtime day, '!' = over capacity (deadline forced)")
	}

	for _, s := range r.Skipped {
		fmt.Fprintf(out, "  ⚠️  Skipped task #%d %s: %s\n", s.TaskID, s.TaskName, s.Reason)
	}
	for _, c := range r.Clipped {
		if c.SimulatedFrom.IsZero() {
			fmt.Fprintf(out, "  ⚠️  Task #%d %s: window opened %s, before the look-back limit; not simulated\n",
				c.TaskID, c.TaskName, dateutil.FormatISODate(c.WindowStart))
			continue
		}
		fmt.Fprintf(out, "  ⚠️  Task #%d %s: window opened %s, simulated from %s\n",
			c.TaskID, c.TaskName, dateutil.FormatISODate(c.WindowStart), dateutil.FormatISODate(c.SimulatedFrom))
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(out, "  ❌ Task #%d %s: %.1fh left when window %s .. %s closed (%s)\n",
			d.TaskID, d.TaskName, d.RemainingHours, d.WindowStart, d.WindowEnd, d.Reason)
	}
}

func dayMarker(d schedule.WorkloadDay) string {
	switch {
	case d.Overflow():
		return "!"
	case d.IsOvertime:
		return "*"
	default:
		return " "
	}
}

func taskSummary(tasks []schedule.WorkloadTask) string {
	if len(tasks) == 0 {
		return "-"
	}
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = fmt.Sprintf("%s %.1fh", t.TaskName, t.DailyHours)
	}
	return strings.Join(parts, ", ")
}

func printOvertime(cfg calendar.OvertimeConfig) {
	fmt.Fprintf(out, "Weekend overtime: %s\n", cfg.Weekend)
	if len(cfg.CustomDates) == 0 {
		fmt.Fprintln(out, "Custom dates:     none")
		return
	}
	fmt.Fprintf(out, "Custom dates:     %s\n", strings.Join(cfg.CustomDates, ", "))
}

func printDevelopers(devs []store.Developer) {
	if len(devs) == 0 {
		fmt.Fprintln(out, "No developers")
		return
	}
	fmt.Fprintln(out, "  ID   | Hours | Active | Name")
	fmt.Fprintln(out, "-------+-------+--------+----------------")
	for _, d := range devs {
		fmt.Fprintf(out, "  %-4d | %5.1f | %-6t | %s\n", d.ID, d.MaxHoursPerDay, d.IsActive, d.Name)
	}
}
