package models

// TelemetrySample is one coordinator tick worth of process data.
// Pressure is kept ×20 so it shares the temperature chart axis.
type TelemetrySample struct {
	TemperatureC  float64 `json:"temperature_c"`
	PressureBar20 float64 `json:"pressure_bar20"`
}

// PressureScale converts bar to the shared-axis chart unit.
const PressureScale = 20.0

// PressureBar returns the actual pressure in bar.
func (s TelemetrySample) PressureBar() float64 {
	return s.PressureBar20 / PressureScale
}
