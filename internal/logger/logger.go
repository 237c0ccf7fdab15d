package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels accepted in config (log.level).
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// panelLogger is the process-wide logger handed to main's collaborators.
	panelLogger *Logger
	once        sync.Once
)

// Get returns the process logger. Only the first call's level takes effect.
func Get(level string) *Logger {
	once.Do(func() {
		panelLogger = New(level)
	})
	return panelLogger
}

// New builds a standalone logger at the given level.
func New(level string) *Logger {
	return newZapLogger(level)
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
