package store

import (
	"context"
	"fmt"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/pkg/dateutil"
)

// LoadYear returns the cached day facts for year
func (s *Store) LoadYear(ctx context.Context, year int) ([]calendar.DayFact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, is_holiday, is_workday, COALESCE(name, '') FROM holiday_cache WHERE year = ? ORDER BY date`,
		year,
	)
	if err != nil {
		return nil, fmt.Errorf("load holidays %d: %w", year, err)
	}
	defer rows.Close()

	var facts []calendar.DayFact
	for rows.Next() {
		var dateStr, name string
		var isHoliday, isWorkday int
		if err := rows.Scan(&dateStr, &isHoliday, &isWorkday, &name); err != nil {
			return nil, err
		}
		date, err := dateutil.ParseISODate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("holiday_cache row %q: %w", dateStr, err)
		}
		facts = append(facts, calendar.DayFact{
			Date:            date,
			IsHoliday:       isHoliday == 1,
			IsMakeupWorkday: isWorkday == 1,
			Name:            name,
			Year:            year,
		})
	}
	return facts, rows.Err()
}

// ReplaceYear deletes all cached facts for year and inserts facts in one transaction
func (s *Store) ReplaceYear(ctx context.Context, year int, facts []calendar.DayFact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holiday_cache WHERE year = ?`, year); err != nil {
		return fmt.Errorf("clear holidays %d: %w", year, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO holiday_cache (date, is_holiday, is_workday, name, year) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx,
			dateutil.FormatISODate(f.Date), boolInt(f.IsHoliday), boolInt(f.IsMakeupWorkday), f.Name, year,
		); err != nil {
			return fmt.Errorf("insert holiday %s: %w", dateutil.FormatISODate(f.Date), err)
		}
	}

	return tx.Commit()
}

// CountHolidays returns the number of cached facts for year
func (s *Store) CountHolidays(ctx context.Context, year int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holiday_cache WHERE year = ?`, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count holidays %d: %w", year, err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
