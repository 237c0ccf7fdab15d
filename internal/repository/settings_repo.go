package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"espresso_panel/internal/settings"
)

// SettingsSQLite is a settings.Backend keeping one row per key.
type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

var _ settings.Backend = (*SettingsSQLite)(nil)

const (
	upsertSettingSQL = `
		INSERT INTO settings (key, type_tag, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			type_tag=excluded.type_tag,
			value=excluded.value,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `SELECT key, type_tag, value FROM settings`
)

// Save upserts every value in one transaction.
func (r *SettingsSQLite) Save(ctx context.Context, values map[string]settings.Value) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for key, v := range values {
		tag, raw, err := settings.Encode(v)
		if err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSettingSQL, key, tag, string(raw), now); err != nil {
			return fmt.Errorf("upsert %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings save: %w", err)
	}
	return nil
}

// Load reads every row. An empty table is reported as settings.ErrNotFound so
// the store restores its defaults.
func (r *SettingsSQLite) Load(ctx context.Context) (map[string]settings.Value, error) {
	rows, err := r.db.QueryContext(ctx, selectSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]settings.Value)
	for rows.Next() {
		var (
			key string
			tag int
			raw string
		)
		if err := rows.Scan(&key, &tag, &raw); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		v, err := settings.Decode(tag, json.RawMessage(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("settings table: %w", settings.ErrNotFound)
	}
	return out, nil
}
