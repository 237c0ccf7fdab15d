package service

import "time"

// LogFilter narrows the brew event history.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "RESET", "STATE_CHANGE", "SETTING_CHANGE", "ERROR"
}
