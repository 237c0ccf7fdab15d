package repository

import (
	"context"
	"database/sql"
	"time"

	"espresso_panel/internal/models"
	"espresso_panel/internal/settings"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.BrewEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.BrewEvent, error)
}

type ShotRepo interface {
	Record(ctx context.Context, s models.Shot) (int64, error)
	Recent(ctx context.Context, limit int) ([]models.Shot, error)
}

type Repository struct {
	Settings  settings.Backend
	EventRepo EventRepo
	ShotRepo  ShotRepo
	Auth      Authorization
}

// NewRepository builds sqlite-backed repositories. Settings defaults to the
// sqlite backend; main swaps in the file backend when configured.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings:  NewSettingsSQLite(db),
		EventRepo: NewEventSQLite(db),
		ShotRepo:  NewShotSQLite(db),
		Auth:      NewOperatorRepository(db),
	}
}
