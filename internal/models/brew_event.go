package models

import "time"

// Brew event types stored in the event log.
const (
	EventStart         = "START"
	EventStop          = "STOP"
	EventReset         = "RESET"
	EventStateChange   = "STATE_CHANGE"
	EventSettingChange = "SETTING_CHANGE"
	EventError         = "ERROR"
)

// BrewEvent is a single entry of the persisted event log.
type BrewEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
