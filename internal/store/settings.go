package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fincopilot/fincopilot/internal/model"
)

// SetSetting upserts key and refreshes its updated_at.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO user_settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, formatTimestamp(time.Now()))
		return err
	})
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}

// Setting returns the value stored under key.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM user_settings WHERE key = ?", key).Scan(&value)
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading setting %q: %w", key, err)
	}
	return value, true, nil
}

// Settings returns every setting ordered by key.
func (s *Store) Settings(ctx context.Context) ([]model.UserSetting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, updated_at FROM user_settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var out []model.UserSetting
	for rows.Next() {
		var (
			us      model.UserSetting
			updated nullTime
		)
		if err := rows.Scan(&us.Key, &us.Value, &updated); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		us.UpdatedAt = updated.Time
		out = append(out, us)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return out, nil
}
