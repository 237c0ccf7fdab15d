package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"espresso_panel/internal/models"
)

type ShotSQLite struct {
	db *sql.DB
}

func NewShotSQLite(db *sql.DB) *ShotSQLite { return &ShotSQLite{db: db} }

const (
	insertShotSQL = `
		INSERT INTO shots (sequence, path, samples, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectRecentShotsSQL = `
		SELECT id, sequence, path, samples, duration_ms, finished_at
		FROM shots ORDER BY finished_at DESC, id DESC LIMIT ?
	`

	defaultShotLimit = 50
)

// Record stores a finished shot and returns its row id.
func (r *ShotSQLite) Record(ctx context.Context, s models.Shot) (int64, error) {
	finished := s.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := r.db.ExecContext(ctx, insertShotSQL,
		s.Sequence, s.Path, s.Samples, s.DurationMs, finished.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert shot %d: %w", s.Sequence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for shot %d: %w", s.Sequence, err)
	}
	return id, nil
}

// Recent returns up to limit shots, newest first. limit <= 0 uses a default.
func (r *ShotSQLite) Recent(ctx context.Context, limit int) ([]models.Shot, error) {
	if limit <= 0 {
		limit = defaultShotLimit
	}
	rows, err := r.db.QueryContext(ctx, selectRecentShotsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("select shots: %w", err)
	}
	defer rows.Close()

	var out []models.Shot
	for rows.Next() {
		var s models.Shot
		if err := rows.Scan(&s.ID, &s.Sequence, &s.Path, &s.Samples, &s.DurationMs, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		s.FinishedAt = s.FinishedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
