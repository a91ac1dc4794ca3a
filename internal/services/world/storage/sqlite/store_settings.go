package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// SettingTime reads a timestamp setting. A missing key returns the zero time.
func (s *Store) SettingTime(ctx context.Context, key string) (time.Time, error) {
	if err := s.ready(ctx); err != nil {
		return time.Time{}, err
	}
	var value int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value_at FROM cooldown_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read setting %q: %w", key, err)
	}
	return fromMillis(value), nil
}

// SetSettingTime writes a timestamp setting.
func (s *Store) SetSettingTime(ctx context.Context, key string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO cooldown_settings (key, value_at) VALUES (?, ?)`,
		key, toMillis(at)); err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

var _ storage.SettingStore = (*Store)(nil)
