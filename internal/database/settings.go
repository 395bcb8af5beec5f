package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultSettings are written on first start and never overwrite user values.
var DefaultSettings = map[string]string{
	"theme":                 "light",
	"refresh_interval":      "300",
	"map_type":              "markers",
	"default_country":       "",
	"notifications_enabled": "true",
	"aqi_alert_threshold":   "150",
	"language":              "en",
}

func (db *DB) initDefaultSettings(ctx context.Context) error {
	now := time.Now().UTC()
	for key, value := range DefaultSettings {
		if _, err := db.exec(ctx, "INSERT", "settings",
			db.dialect.insertIgnore+` INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)`,
			key, value, now); err != nil {
			return err
		}
	}
	return nil
}

// GetSetting returns a setting, or ErrNotFound.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT setting_value FROM settings WHERE setting_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	return value, err
}

// SetSetting inserts or replaces a setting
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.exec(ctx, "UPSERT", "settings", db.dialect.upsertSetting, key, value, time.Now().UTC())
	return err
}

// GetSettings returns every stored setting
func (db *DB) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := db.query(ctx, "settings", `SELECT setting_key, setting_value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
