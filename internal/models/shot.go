package models

import "time"

// Shot describes one rotated shot log file.
type Shot struct {
	ID         int64     `json:"id"`
	Sequence   int       `json:"sequence"`
	Path       string    `json:"path"`
	Samples    int       `json:"samples"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}
