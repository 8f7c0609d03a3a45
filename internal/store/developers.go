package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

func (s *Store) CreateDeveloper(ctx context.Context, name string, maxHoursPerDay float64, avatarColor string) (*Developer, error) {
	if avatarColor == "" {
		avatarColor = "#1890ff"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO developers (name, max_hours_per_day, avatar_color) VALUES (?, ?, ?)`,
		name, maxHoursPerDay, avatarColor,
	)
	if err != nil {
		return nil, fmt.Errorf("insert developer: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetDeveloper(ctx, id)
}

// GetDeveloper returns the developer with id, or an error wrapping ErrNotFound
func (s *Store) GetDeveloper(ctx context.Context, id int64) (*Developer, error) {
	d := &Developer{}
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, max_hours_per_day, avatar_color, is_active FROM developers WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.MaxHoursPerDay, &d.AvatarColor, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get developer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get developer %d: %w", id, err)
	}
	d.IsActive = active == 1
	return d, nil
}

func (s *Store) ListDevelopers(ctx context.Context) ([]Developer, error) {
	return s.queryDevelopers(ctx, `SELECT id, name, max_hours_per_day, avatar_color, is_active FROM developers ORDER BY id`)
}

func (s *Store) ListActiveDevelopers(ctx context.Context) ([]Developer, error) {
	return s.queryDevelopers(ctx, `SELECT id, name, max_hours_per_day, avatar_color, is_active FROM developers WHERE is_active = 1 ORDER BY id`)
}

func (s *Store) SetDeveloperActive(ctx context.Context, id int64, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE developers SET is_active = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("update developer %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update developer %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) queryDevelopers(ctx context.Context, query string) ([]Developer, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list developers: %w", err)
	}
	defer rows.Close()

	var devs []Developer
	for rows.Next() {
		var d Developer
		var active int
		if err := rows.Scan(&d.ID, &d.Name, &d.MaxHoursPerDay, &d.AvatarColor, &active); err != nil {
			return nil, err
		}
		d.IsActive = active == 1
		devs = append(devs, d)
	}
	return devs, rows.Err()
}
