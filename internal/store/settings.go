package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

const (
	SettingQueuePaused = "queue_paused"
)

func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return err
}

// Paused reports the persisted pause flag. An unset flag means running.
func (db *DB) Paused(ctx context.Context) (bool, error) {
	value, err := db.GetSetting(ctx, SettingQueuePaused)
	if err != nil || value == "" {
		return false, err
	}
	return strconv.ParseBool(value)
}

func (db *DB) SetPaused(ctx context.Context, paused bool) error {
	if !paused {
		return db.DeleteSetting(ctx, SettingQueuePaused)
	}
	return db.SetSetting(ctx, SettingQueuePaused, strconv.FormatBool(paused))
}
