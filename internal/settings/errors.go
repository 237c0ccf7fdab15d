package settings

import "errors"

var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("setting not found")
	// ErrTypeMismatch is returned when a value's kind differs from the stored kind.
	ErrTypeMismatch = errors.New("setting type mismatch")
	// ErrSchema is returned by backends when stored data cannot be decoded.
	ErrSchema = errors.New("settings schema mismatch")
	// ErrOutOfRange is returned by CheckRange for values outside a key's limits.
	ErrOutOfRange = errors.New("setting out of range")
)
