package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/workload-planner/pkg/dateutil"
)

const taskColumns = `t.id, t.name, t.task_type, t.priority, t.status, t.owner_id, d.name,
	t.planned_start, t.planned_end, t.planned_hours`

const taskFrom = ` FROM tasks t LEFT JOIN developers d ON t.owner_id = d.id`

// CreateTask inserts a task. Planned dates that parse are stored as
// YYYY-MM-DD so range queries compare them correctly; others are kept as
// given and reported by slot projection.
func (s *Store) CreateTask(ctx context.Context, nt NewTask) (*Task, error) {
	status := nt.Status
	if status == "" {
		status = StatusTodo
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (name, task_type, priority, status, owner_id, planned_start, planned_end, planned_hours)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nt.Name, nt.TaskType, nt.Priority, status, nt.OwnerID,
		canonicalDate(nt.PlannedStart), canonicalDate(nt.PlannedEnd), nt.PlannedHours,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ErrInvalidStatus is returned for a status outside the known task statuses
var ErrInvalidStatus = errors.New("invalid task status")

func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("update task %d: %w %q", id, ErrInvalidStatus, status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %d: %w", id, ErrNotFound)
	}
	return nil
}

// TasksForDeveloperInRange returns the developer's non-cancelled tasks with both
// planned dates set whose window overlaps [start, end] (YYYY-MM-DD).
func (s *Store) TasksForDeveloperInRange(ctx context.Context, developerID int64, start, end string) ([]Task, error) {
	query := `SELECT ` + taskColumns + taskFrom + `
		WHERE t.owner_id = ?
		AND t.planned_start IS NOT NULL AND t.planned_end IS NOT NULL
		AND t.planned_start <= ? AND t.planned_end >= ?
		AND t.status != ?
		ORDER BY t.planned_start, t.id`
	return s.queryTasks(ctx, query, developerID, end, start, StatusCancelled)
}

// TasksInRange is TasksForDeveloperInRange across all developers
func (s *Store) TasksInRange(ctx context.Context, start, end string) ([]Task, error) {
	query := `SELECT ` + taskColumns + taskFrom + `
		WHERE t.planned_start IS NOT NULL AND t.planned_end IS NOT NULL
		AND t.planned_start <= ? AND t.planned_end >= ?
		AND t.status != ?
		ORDER BY t.planned_start, t.id`
	return s.queryTasks(ctx, query, end, start, StatusCancelled)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t            Task
		taskType     sql.NullString
		priority     sql.NullString
		ownerID      sql.NullInt64
		ownerName    sql.NullString
		plannedStart sql.NullString
		plannedEnd   sql.NullString
		plannedHours sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.Name, &taskType, &priority, &t.Status, &ownerID, &ownerName,
		&plannedStart, &plannedEnd, &plannedHours)
	if err != nil {
		return nil, err
	}
	t.TaskType = nullString(taskType)
	t.Priority = nullString(priority)
	t.OwnerName = nullString(ownerName)
	t.PlannedStart = nullString(plannedStart)
	t.PlannedEnd = nullString(plannedEnd)
	if ownerID.Valid {
		t.OwnerID = &ownerID.Int64
	}
	if plannedHours.Valid {
		t.PlannedHours = &plannedHours.Float64
	}
	return &t, nil
}

func canonicalDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	d, err := dateutil.ParseISODate(*raw)
	if err != nil {
		return raw
	}
	iso := dateutil.FormatISODate(d)
	return &iso
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
