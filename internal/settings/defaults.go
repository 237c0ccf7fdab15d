package settings

import (
	"context"
	"fmt"
)

// Well-known keys.
const (
	KeyBrewTemp                 = "BrewTemp"
	KeySteamTemp                = "SteamTemp"
	KeyBrewPressure             = "BrewPressure"
	KeyBoilerKp                 = "BoilerKp"
	KeyBoilerKi                 = "BoilerKi"
	KeyBoilerKd                 = "BoilerKd"
	KeyPumpKp                   = "PumpKp"
	KeyPumpKi                   = "PumpKi"
	KeyPumpKd                   = "PumpKd"
	KeyManualPumpControl        = "ManualPumpControl"
	KeyManualPumpControlEnabled = "ManualPumpControlEnabled"
)

// Defaults returns the values restored when the backend cannot be read.
func Defaults() map[string]Value {
	return map[string]Value{
		KeyBrewTemp:                 Float(93.0),
		KeySteamTemp:                Float(145.0),
		KeyBrewPressure:             Float(9.0),
		KeyBoilerKp:                 Float(40),
		KeyBoilerKi:                 Float(2),
		KeyBoilerKd:                 Float(10),
		KeyPumpKp:                   Float(20),
		KeyPumpKi:                   Float(5),
		KeyPumpKd:                   Float(1),
		KeyManualPumpControl:        Float(0),
		KeyManualPumpControlEnabled: Bool(false),
	}
}

// Limit is the inclusive slider range for a numeric key.
type Limit struct {
	Min, Max float64
}

var limits = map[string]Limit{
	KeyBrewTemp:     {85, 100},
	KeySteamTemp:    {120, 150},
	KeyBrewPressure: {6, 12},
	KeyBoilerKp:     {1, 500},
	KeyBoilerKi:     {1, 500},
	KeyBoilerKd:     {1, 500},
	KeyPumpKp:       {1, 500},
	KeyPumpKi:       {1, 500},
	KeyPumpKd:       {1, 500},
}

// CheckRange validates a float against the key's slider range. Keys without
// a range always pass.
func CheckRange(key string, v float64) error {
	l, ok := limits[key]
	if !ok {
		return nil
	}
	if v < l.Min || v > l.Max {
		return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrOutOfRange, key, v, l.Min, l.Max)
	}
	return nil
}

// LoadDefaults overwrites every default key and optionally persists.
func (s *Store) LoadDefaults(ctx context.Context, persist bool) error {
	for key, v := range Defaults() {
		_ = s.assign(key, v, false)
	}
	if !persist {
		return nil
	}
	return s.Save(ctx)
}
