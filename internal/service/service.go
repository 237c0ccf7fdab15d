package service

import (
	"context"

	"espresso_panel/internal/models"
	"espresso_panel/internal/repository"
	"espresso_panel/internal/settings"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Brew exposes the session intents of the Presentation Layer and the
// current state for display.
type Brew interface {
	Toggle(ctx context.Context, checked bool) error
	Reset(ctx context.Context) error
	SetSteam(ctx context.Context, enabled bool) error
	SetManualPump(ctx context.Context, value float64) error
	SetSetting(ctx context.Context, key string, value float64) error
	Snapshot() models.Snapshot
}

// Settings is the read side of the settings store.
type Settings interface {
	All() map[string]settings.Value
}

// EventLog exposes the append-only brew event history.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.BrewEvent, error)
}

// ShotHistory lists rotated shot logs.
type ShotHistory interface {
	Recent(ctx context.Context, limit int) ([]models.Shot, error)
}

// Events hands out subscriptions to the coordinator's event stream.
type Events interface {
	Subscribe(bufSize int) *Subscription
	Unsubscribe(sub *Subscription)
	Dropped() uint64
}

// Service aggregates everything the HTTP layer needs.
type Service struct {
	Brew
	Settings
	EventLog
	ShotHistory
	Authorization
	Events
}

// NewService wires the repositories and the running coordinator into the
// services consumed by handlers.
func NewService(repos *repository.Repository, store *settings.Store, brew Brew, bus *Bus, auth AuthConfig) *Service {
	return &Service{
		Brew:          brew,
		Settings:      store,
		EventLog:      NewEventLogService(repos.EventRepo),
		ShotHistory:   NewShotHistoryService(repos.ShotRepo),
		Authorization: NewAuthService(repos.Auth, auth),
		Events:        bus,
	}
}
