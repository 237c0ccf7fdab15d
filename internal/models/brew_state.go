package models

import "time"

// BrewState mirrors the Process Controller's reported machine state.
type BrewState string

const (
	StateHeating   BrewState = "HEATING"
	StateIdle      BrewState = "IDLE"
	StateInhibited BrewState = "INHIBITED"
	StateReady     BrewState = "READY"
	StateBrewing   BrewState = "BREWING"
)

// Valid reports whether s is one of the known states.
func (s BrewState) Valid() bool {
	switch s {
	case StateHeating, StateIdle, StateInhibited, StateReady, StateBrewing:
		return true
	}
	return false
}

// Controls is what the Presentation Layer should show for the session buttons.
type Controls struct {
	StartEnabled bool   `json:"start_enabled"`
	StartChecked bool   `json:"start_checked"`
	StartLabel   string `json:"start_label"` // "Start" | "Stop"
	ResetEnabled bool   `json:"reset_enabled"`
}

// Progress is the wrap-around visual progress of a session.
type Progress struct {
	Value int `json:"value"` // 0..Max
	Max   int `json:"max"`
	Angle int `json:"angle"` // secondary indicator start angle, degrees
	Laps  int `json:"laps"`  // times Value reached Max in this session
}

// Band is a display-only range around the target temperature.
type Band struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Snapshot is a point-in-time copy of the coordinator state.
type Snapshot struct {
	State        BrewState `json:"state"`
	Running      bool      `json:"running"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	TemperatureC float64   `json:"temperature_c"`
	CurrentLabel string    `json:"current_label"`
	TargetC      float64   `json:"target_c"`
	TargetLabel  string    `json:"target_label"`
	PressureBar  float64   `json:"pressure_bar"`
	Steam        bool      `json:"steam"`
	TargetBand   Band      `json:"target_band"`
	Controls     Controls  `json:"controls"`
	Progress     Progress  `json:"progress"`
	ShotSequence int       `json:"shot_sequence"`
	UpdatedAt    time.Time `json:"updated_at"`
}
