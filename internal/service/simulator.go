package service

import (
	"context"
	"math"
	"sync"
	"time"

	"espresso_panel/internal/logger"
	"espresso_panel/internal/models"
	"espresso_panel/internal/repository"
	"espresso_panel/internal/settings"
)

// ----------- Boiler model constants -----------
const (
	AmbientC         = 25.0  // ambient temperature °C
	MaxSafeC         = 165.0 // overheat lockout °C
	RampUpCPerSec    = 2.5   // heater slope
	CoolCPerSec      = 0.8   // passive cooling slope
	ReadyToleranceC  = 1.5   // band for "at temperature"
	PumpBarPerSec    = 4.0   // pressure slew rate
	FullPumpDuty     = 100.0 // ManualPumpControl value for full brew pressure
	DefaultPumpLimit = 9.0   // bar, used when BrewPressure is unset
)

// BoilerSimulator is a Process Controller without hardware: it ramps the
// boiler toward the commanded target and derives pressure from the manual
// pump setting.
type BoilerSimulator struct {
	mu sync.Mutex

	store     *settings.Store
	eventRepo repository.EventRepo
	listener  BoilerListener
	log       *logger.Logger

	tempC       float64
	targetC     float64
	pressureBar float64
	state       models.BrewState
}

var _ ProcessController = (*BoilerSimulator)(nil)

func NewBoilerSimulator(store *settings.Store, eventRepo repository.EventRepo, log *logger.Logger) *BoilerSimulator {
	if log == nil {
		log = logger.Nop()
	}
	return &BoilerSimulator{
		store:     store,
		eventRepo: eventRepo,
		log:       log,
		tempC:     AmbientC,
		state:     models.StateIdle,
	}
}

// SetListener attaches the feedback receiver, normally the coordinator.
func (s *BoilerSimulator) SetListener(l BoilerListener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// SetTargetTemperature changes the set point and echoes it to the listener.
func (s *BoilerSimulator) SetTargetTemperature(c float64) {
	s.mu.Lock()
	s.targetC = c
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.OnTargetTemperatureChanged(c)
	}
}

// Run steps the model every tick until ctx is cancelled.
func (s *BoilerSimulator) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Step(ctx, tick.Seconds())
		}
	}
}

// Step advances the model by dt seconds and reports temperature, pressure and
// state to the listener.
func (s *BoilerSimulator) Step(ctx context.Context, dt float64) {
	pumpBar := s.pumpTarget()

	s.mu.Lock()
	prev := s.state
	s.tempC = s.nextTemp(dt)
	s.pressureBar = slew(s.pressureBar, pumpBar, PumpBarPerSec*dt)
	s.state = s.classify()
	temp, bar, state, l := s.tempC, s.pressureBar, s.state, s.listener
	s.mu.Unlock()

	if state == models.StateInhibited && prev != models.StateInhibited {
		s.log.Errorw("boiler_overheat", "temp_c", temp, "max_safe", MaxSafeC)
		s.appendOverheat(ctx, temp)
	}
	if l == nil {
		return
	}
	l.OnCurrentTemperatureChanged(temp)
	l.OnPressureChanged(bar)
	l.OnStateChanged(state)
}

// nextTemp heats toward the target, or drifts toward ambient when the target
// is below the current temperature.
func (s *BoilerSimulator) nextTemp(dt float64) float64 {
	switch {
	case s.targetC > s.tempC:
		return min(s.tempC+RampUpCPerSec*dt, s.targetC)
	case s.targetC < s.tempC:
		return max(s.tempC-CoolCPerSec*dt, s.targetC, AmbientC)
	}
	return s.tempC
}

func (s *BoilerSimulator) classify() models.BrewState {
	switch {
	case s.tempC > MaxSafeC:
		return models.StateInhibited
	case s.targetC <= AmbientC:
		return models.StateIdle
	case math.Abs(s.tempC-s.targetC) > ReadyToleranceC:
		return models.StateHeating
	}
	return models.StateReady
}

// pumpTarget is the pressure the pump would reach at the stored manual duty.
func (s *BoilerSimulator) pumpTarget() float64 {
	if s.store == nil {
		return 0
	}
	if enabled, err := s.store.BoolValue(settings.KeyManualPumpControlEnabled); err != nil || !enabled {
		return 0
	}
	duty := s.store.FloatOr(settings.KeyManualPumpControl, 0)
	limit := s.store.FloatOr(settings.KeyBrewPressure, DefaultPumpLimit)
	duty = min(max(duty, 0), FullPumpDuty)
	return limit * duty / FullPumpDuty
}

func (s *BoilerSimulator) appendOverheat(ctx context.Context, temp float64) {
	if s.eventRepo == nil {
		return
	}
	err := s.eventRepo.Append(ctx, models.BrewEvent{
		Type:        models.EventError,
		Description: "Overheat detected",
		Metadata:    map[string]any{"temp_c": temp, "max_safe": MaxSafeC},
	})
	if err != nil {
		s.log.Warnw("brew_event_append_failed", "type", models.EventError, "err", err)
	}
}

// slew moves cur toward want by at most step.
func slew(cur, want, step float64) float64 {
	if cur < want {
		return min(cur+step, want)
	}
	return max(cur-step, want)
}
