package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"espresso_panel/internal/logger"
	"espresso_panel/internal/models"
	"espresso_panel/internal/repository"
	"espresso_panel/internal/settings"
	"espresso_panel/internal/shotlog"
)

var (
	ErrStartDisabled = errors.New("start is disabled in the current state")
	ErrResetDisabled = errors.New("reset is disabled")
)

const (
	labelStart = "Start"
	labelStop  = "Stop"

	fullTurn = 360
	bandStep = 5.0
)

// ProcessController accepts target temperature commands.
type ProcessController interface {
	SetTargetTemperature(c float64)
}

// BoilerListener receives Process Controller feedback. Pressure is in bar.
type BoilerListener interface {
	OnCurrentTemperatureChanged(c float64)
	OnTargetTemperatureChanged(c float64)
	OnPressureChanged(bar float64)
	OnStateChanged(s models.BrewState)
}

// ShotRecorder buffers session telemetry. *shotlog.Logger implements it.
type ShotRecorder interface {
	AddSample(s models.TelemetrySample) error
	Flush(newFile bool) (shotlog.Summary, error)
	Sequence() int
	Close() error
}

// BrewConfig holds the timing and display constants of a session.
type BrewConfig struct {
	Tick          time.Duration
	ShotDuration  time.Duration
	AngleStep     int
	BandHalfWidth float64
	PumpScale     float64
}

// ProgressMax is the number of ticks representing one nominal shot.
func (c BrewConfig) ProgressMax() int {
	return int(c.ShotDuration/c.Tick) + 1
}

type BrewDeps struct {
	Store      *settings.Store
	Shots      ShotRecorder
	Controller ProcessController
	Events     repository.EventRepo
	History    repository.ShotRepo
	Bus        Publisher
	Log        *logger.Logger
	Now        func() time.Time
}

// Reading is a display value with its formatted label.
type Reading struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// TargetReading is published when the commanded target changes.
type TargetReading struct {
	Target float64     `json:"target"`
	Band   models.Band `json:"band"`
	Label  string      `json:"label"`
}

// BrewCoordinator owns the session stopwatch and the brew state machine.
// All entry points serialize on one mutex, so ticks, operator intents and
// controller feedback never interleave.
type BrewCoordinator struct {
	mu sync.Mutex

	cfg        BrewConfig
	store      *settings.Store
	shots      ShotRecorder
	controller ProcessController
	events     repository.EventRepo
	history    repository.ShotRepo
	bus        Publisher
	log        *logger.Logger
	now        func() time.Time

	state          models.BrewState
	running        bool
	elapsedMs      int64
	sessionStartMs int64
	tempC          float64
	targetC        float64
	pressure20     float64
	steam          bool
	band           models.Band
	controls       models.Controls
	progress       models.Progress
	updatedAt      time.Time
}

var (
	_ BoilerListener    = (*BrewCoordinator)(nil)
	_ settings.Observer = (*BrewCoordinator)(nil)
)

// NewBrewCoordinator starts in Heating with the start control disabled and
// subscribes to the brew and steam temperature settings.
func NewBrewCoordinator(cfg BrewConfig, deps BrewDeps) *BrewCoordinator {
	if cfg.Tick <= 0 {
		cfg.Tick = 100 * time.Millisecond
	}
	if cfg.ShotDuration <= 0 {
		cfg.ShotDuration = 30 * time.Second
	}
	if cfg.AngleStep <= 0 {
		cfg.AngleStep = 6
	}
	if cfg.PumpScale == 0 {
		cfg.PumpScale = 1
	}
	if deps.Bus == nil {
		deps.Bus = discard{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &BrewCoordinator{
		cfg:        cfg,
		store:      deps.Store,
		shots:      deps.Shots,
		controller: deps.Controller,
		events:     deps.Events,
		history:    deps.History,
		bus:        deps.Bus,
		log:        deps.Log,
		now:        deps.Now,
		state:      models.StateHeating,
		controls:   models.Controls{StartLabel: labelStart},
		progress:   models.Progress{Max: cfg.ProgressMax()},
	}
	if c.store != nil {
		c.store.Register(settings.KeyBrewTemp, c)
		c.store.Register(settings.KeySteamTemp, c)
	}
	return c
}

// Run commands the initial target and ticks until ctx is cancelled. An open
// session is stopped and flushed before Run returns.
func (c *BrewCoordinator) Run(ctx context.Context) {
	if err := c.commandTarget(); err != nil {
		c.log.Warnw("brew_target_unavailable", "err", err)
	}

	t := time.NewTicker(c.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Close(closeCtx); err != nil {
				c.log.Errorw("brew_close_failed", "err", err)
			}
			cancel()
			return
		case <-t.C:
			c.Tick()
		}
	}
}

// Tick forwards one telemetry sample and, while a session runs, advances the
// stopwatch, buffers the sample and steps the progress indicator.
func (c *BrewCoordinator) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample := models.TelemetrySample{TemperatureC: c.tempC, PressureBar20: c.pressure20}
	c.publish(EventTelemetry, sample)
	if !c.running {
		return
	}

	c.elapsedMs += c.cfg.Tick.Milliseconds()
	if err := c.shots.AddSample(sample); err != nil {
		// the sample stays buffered; the next flush retries
		c.log.Warnw("shot_sample_not_written", "err", err)
	}
	c.advanceProgress()
	c.updatedAt = c.now()

	c.publish(EventElapsed, c.elapsedMs)
	c.publish(EventProgress, c.progress)
}

// advanceProgress fills the bar up to Max, then turns the secondary
// indicator until a full revolution resets both.
func (c *BrewCoordinator) advanceProgress() {
	p := &c.progress
	if p.Value < p.Max {
		p.Value++
		if p.Value == p.Max {
			p.Laps++
		}
		return
	}
	p.Angle += c.cfg.AngleStep
	if p.Angle >= fullTurn {
		p.Value = 0
		p.Angle = 0
	}
}

// Toggle handles the start/stop control. Checking it starts a session;
// unchecking a running session stops it and rotates the shot log.
func (c *BrewCoordinator) Toggle(ctx context.Context, checked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if checked {
		if c.running {
			return nil
		}
		if !c.controls.StartEnabled {
			return fmt.Errorf("%w: %s", ErrStartDisabled, c.state)
		}
		c.startLocked(ctx, "operator")
		return nil
	}

	c.controls.StartChecked = false
	c.controls.StartLabel = labelStart
	if c.running {
		c.stopLocked(ctx, "operator")
	}
	c.publish(EventControls, c.controls)
	return nil
}

// Reset zeroes the stopwatch and progress. It ends a running session.
func (c *BrewCoordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.controls.ResetEnabled {
		return ErrResetDisabled
	}
	if c.running {
		c.running = false
		c.endSessionLocked(ctx)
	}
	elapsed := c.elapsedMs
	c.elapsedMs = 0
	c.sessionStartMs = 0
	c.progress = models.Progress{Max: c.progress.Max}
	c.controls.StartChecked = false
	c.controls.StartLabel = labelStart
	c.controls.ResetEnabled = false
	c.updatedAt = c.now()

	c.publish(EventElapsed, c.elapsedMs)
	c.publish(EventProgress, c.progress)
	c.publish(EventControls, c.controls)
	c.appendEvent(ctx, models.EventReset, "Session reset", map[string]any{"elapsed_ms": elapsed})
	return nil
}

// SetManualPump stores a pump slider position scaled to the pump unit.
func (c *BrewCoordinator) SetManualPump(ctx context.Context, value float64) error {
	scaled := value * c.cfg.PumpScale
	if err := c.store.Set(ctx, settings.KeyManualPumpControl, settings.Float(scaled)); err != nil {
		return fmt.Errorf("manual pump control: %w", err)
	}
	return nil
}

// SetSetting applies a numeric slider edit to an existing key.
func (c *BrewCoordinator) SetSetting(ctx context.Context, key string, value float64) error {
	if _, err := c.store.Get(key); err != nil {
		return err
	}
	if err := settings.CheckRange(key, value); err != nil {
		return err
	}
	if err := c.store.Set(ctx, key, settings.Float(value)); err != nil {
		return err
	}
	c.appendEvent(ctx, models.EventSettingChange, "Setting "+key+" changed",
		map[string]any{"key": key, "value": value})
	return nil
}

// SetSteam switches the commanded target between SteamTemp and BrewTemp.
func (c *BrewCoordinator) SetSteam(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	changed := c.steam != enabled
	c.steam = enabled
	c.mu.Unlock()

	if err := c.commandTarget(); err != nil {
		return err
	}
	if changed {
		c.appendEvent(ctx, models.EventSettingChange, fmt.Sprintf("Steam %s", onOff(enabled)),
			map[string]any{"steam": enabled})
	}
	return nil
}

// commandTarget sends the active target to the controller. It must be
// called without c.mu held: the controller reports back synchronously.
func (c *BrewCoordinator) commandTarget() error {
	c.mu.Lock()
	key := settings.KeyBrewTemp
	if c.steam {
		key = settings.KeySteamTemp
	}
	c.mu.Unlock()

	target, err := c.store.Float(key)
	if err != nil {
		return fmt.Errorf("target temperature: %w", err)
	}
	if c.controller != nil {
		c.controller.SetTargetTemperature(target)
	}
	return nil
}

// OnSettingChanged re-commands the target when the active temperature
// setting is written.
func (c *BrewCoordinator) OnSettingChanged(key string, v settings.Value) {
	c.mu.Lock()
	active := (key == settings.KeyBrewTemp && !c.steam) || (key == settings.KeySteamTemp && c.steam)
	c.mu.Unlock()
	if !active {
		return
	}

	target, err := v.Float()
	if err != nil {
		c.log.Warnw("brew_target_invalid", "key", key, "err", err)
		return
	}
	if c.controller != nil {
		c.controller.SetTargetTemperature(target)
	}
}

func (c *BrewCoordinator) OnCurrentTemperatureChanged(temp float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempC = temp
	c.updatedAt = c.now()
	c.publish(EventTemperature, Reading{Value: temp, Label: currentLabel(temp)})
}

func (c *BrewCoordinator) OnTargetTemperatureChanged(temp float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetC = temp
	c.band = targetBand(temp, c.cfg.BandHalfWidth)
	c.updatedAt = c.now()
	c.publish(EventTargetBand, TargetReading{Target: temp, Band: c.band, Label: targetLabel(temp)})
}

func (c *BrewCoordinator) OnPressureChanged(bar float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pressure20 = bar * models.PressureScale
	c.updatedAt = c.now()
	c.publish(EventPressure, Reading{Value: bar})
}

// OnStateChanged applies a reported machine state. While a session is open,
// Ready and Heating reports keep the state at Brewing; Idle and Inhibited end
// the session. The first Ready after a stopped brew clears the start control.
func (c *BrewCoordinator) OnStateChanged(s models.BrewState) {
	if !s.Valid() {
		c.log.Warnw("brew_state_unknown", "state", s)
		return
	}
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch s {
	case models.StateReady:
		if c.state == models.StateBrewing {
			if c.running {
				return
			}
			c.controls.StartChecked = false
			c.controls.StartLabel = labelStart
		}
		c.controls.StartEnabled = true
	case models.StateBrewing:
		c.controls.StartEnabled = true
		if !c.running {
			c.startLocked(ctx, "machine")
			return
		}
	case models.StateHeating:
		if c.running {
			return
		}
		c.controls.StartEnabled = false
	case models.StateIdle, models.StateInhibited:
		c.controls.StartEnabled = false
		if c.running {
			c.controls.StartChecked = false
			c.controls.StartLabel = labelStart
			c.stopLocked(ctx, strings.ToLower(string(s)))
		}
	}
	c.setStateLocked(ctx, s)
	c.publish(EventControls, c.controls)
}

// Snapshot returns a copy of the session state.
func (c *BrewCoordinator) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Snapshot{
		State:        c.state,
		Running:      c.running,
		ElapsedMs:    c.elapsedMs,
		TemperatureC: c.tempC,
		CurrentLabel: currentLabel(c.tempC),
		TargetC:      c.targetC,
		TargetLabel:  targetLabel(c.targetC),
		PressureBar:  c.pressure20 / models.PressureScale,
		Steam:        c.steam,
		TargetBand:   c.band,
		Controls:     c.controls,
		Progress:     c.progress,
		ShotSequence: c.shots.Sequence(),
		UpdatedAt:    c.updatedAt,
	}
}

// Close stops an open session, stops observing settings and closes the
// shot log.
func (c *BrewCoordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.controls.StartChecked = false
		c.controls.StartLabel = labelStart
		c.stopLocked(ctx, "shutdown")
	}
	if c.store != nil {
		c.store.Deregister(settings.KeyBrewTemp, c)
		c.store.Deregister(settings.KeySteamTemp, c)
	}
	return c.shots.Close()
}

func (c *BrewCoordinator) startLocked(ctx context.Context, source string) {
	c.controls.ResetEnabled = true
	c.controls.StartChecked = true
	c.controls.StartLabel = labelStop
	c.running = true
	c.sessionStartMs = c.elapsedMs
	c.setStateLocked(ctx, models.StateBrewing)
	c.publish(EventControls, c.controls)
	c.appendEvent(ctx, models.EventStart, "Session started",
		map[string]any{"source": source, "sequence": c.shots.Sequence()})
}

func (c *BrewCoordinator) stopLocked(ctx context.Context, reason string) {
	c.running = false
	c.endSessionLocked(ctx)
	c.appendEvent(ctx, models.EventStop, "Session stopped",
		map[string]any{"reason": reason, "elapsed_ms": c.elapsedMs})
}

// endSessionLocked flushes and rotates the shot log and records the shot.
// A failed flush keeps the samples for the next attempt.
func (c *BrewCoordinator) endSessionLocked(ctx context.Context) {
	sum, err := c.shots.Flush(true)
	if err != nil {
		c.log.Warnw("shot_flush_failed", "err", err)
		return
	}
	if c.history == nil {
		return
	}
	shot := models.Shot{
		Sequence:   sum.Sequence,
		Path:       sum.Path,
		Samples:    sum.Samples,
		DurationMs: c.elapsedMs - c.sessionStartMs,
		FinishedAt: c.now().UTC(),
	}
	if _, err := c.history.Record(ctx, shot); err != nil {
		c.log.Warnw("shot_record_failed", "sequence", shot.Sequence, "err", err)
	}
}

func (c *BrewCoordinator) setStateLocked(ctx context.Context, s models.BrewState) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.updatedAt = c.now()
	c.log.Infow("brew_state_changed", "from", from, "to", s)
	c.publish(EventState, s)
	c.appendEvent(ctx, models.EventStateChange, fmt.Sprintf("%s -> %s", from, s),
		map[string]any{"from": from, "to": s})
}

func (c *BrewCoordinator) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	if c.events == nil {
		return
	}
	err := c.events.Append(ctx, models.BrewEvent{
		OccurredAt:  c.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		c.log.Warnw("brew_event_append_failed", "type", typ, "err", err)
	}
}

func (c *BrewCoordinator) publish(typ string, data any) {
	c.bus.Publish(Event{Type: typ, Data: data, At: c.now().UTC()})
}

// targetBand centres a band of ±half on target, snapped to multiples of 5.
func targetBand(target, half float64) models.Band {
	snap := func(v float64) float64 { return math.Round(v/bandStep) * bandStep }
	return models.Band{Start: snap(target - half), End: snap(target + half)}
}

func currentLabel(c float64) string { return fmt.Sprintf("Current %d°c", int(c)) }
func targetLabel(c float64) string  { return fmt.Sprintf("Target %d°c", int(c)) }

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

type discard struct{}

func (discard) Publish(Event) {}
