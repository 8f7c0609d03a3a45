package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/username/workload-planner/internal/calendar"
)

const (
	// OvertimeSettingKey stores the overtime configuration as JSON
	OvertimeSettingKey = "schedule.overtime_days"
	scheduleCategory   = "schedule"
)

// GetSetting returns the value for key; ok is false when the key is unset
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value, category string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, category, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, category = excluded.category, updated_at = excluded.updated_at`,
		key, value, category, now,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetSettingsByCategory(ctx context.Context, category string) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, category FROM app_settings WHERE category = ? ORDER BY key`, category)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Category); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// LoadOvertimeConfig returns the stored overtime configuration. A missing or
// unreadable value yields the default (no overtime); invalid custom dates are
// dropped and reported in the second return value.
func (s *Store) LoadOvertimeConfig(ctx context.Context) (calendar.OvertimeConfig, []string, error) {
	raw, ok, err := s.GetSetting(ctx, OvertimeSettingKey)
	if err != nil {
		return calendar.DefaultOvertimeConfig(), nil, err
	}
	if !ok || raw == "" {
		return calendar.DefaultOvertimeConfig(), nil, nil
	}

	var cfg calendar.OvertimeConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return calendar.DefaultOvertimeConfig(), []string{raw}, nil
	}

	normalized, invalid, err := cfg.Normalize()
	if err != nil {
		return calendar.DefaultOvertimeConfig(), []string{string(cfg.Weekend)}, nil
	}
	return normalized, invalid, nil
}

// SaveOvertimeConfig validates and stores the overtime configuration
func (s *Store) SaveOvertimeConfig(ctx context.Context, cfg calendar.OvertimeConfig) (calendar.OvertimeConfig, error) {
	normalized, invalid, err := cfg.Normalize()
	if err != nil {
		return calendar.OvertimeConfig{}, err
	}
	if len(invalid) > 0 {
		return calendar.OvertimeConfig{}, fmt.Errorf("%w: bad dates %v", calendar.ErrInvalidOvertime, invalid)
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return calendar.OvertimeConfig{}, fmt.Errorf("encode overtime config: %w", err)
	}
	if err := s.SetSetting(ctx, OvertimeSettingKey, string(data), scheduleCategory); err != nil {
		return calendar.OvertimeConfig{}, err
	}
	return normalized, nil
}
