package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"espresso_panel/internal/models"
	"espresso_panel/internal/settings"
	"espresso_panel/internal/shotlog"
)

// eventRepoStub satisfies repository.EventRepo and records appends.
type eventRepoStub struct {
	mu      sync.Mutex
	appends []models.BrewEvent

	gotFrom, gotTo time.Time
	gotType        string
	listCalls      int
	events         []models.BrewEvent
	err            error
}

func (r *eventRepoStub) Append(_ context.Context, e models.BrewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appends = append(r.appends, e)
	return r.err
}

func (r *eventRepoStub) List(_ context.Context, from, to time.Time, typ string) ([]models.BrewEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.gotFrom, r.gotTo, r.gotType = from, to, typ
	return r.events, r.err
}

func (r *eventRepoStub) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.appends))
	for _, e := range r.appends {
		out = append(out, e.Type)
	}
	return out
}

// shotRepoStub satisfies repository.ShotRepo.
type shotRepoStub struct {
	mu       sync.Mutex
	recorded []models.Shot
	recent   []models.Shot
	gotLimit int
	err      error
}

func (r *shotRepoStub) Record(_ context.Context, s models.Shot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.recorded = append(r.recorded, s)
	return int64(len(r.recorded)), nil
}

func (r *shotRepoStub) Recent(_ context.Context, limit int) ([]models.Shot, error) {
	r.gotLimit = limit
	return r.recent, r.err
}

// memBackend keeps settings in memory.
type memBackend struct {
	mu     sync.Mutex
	values map[string]settings.Value
	saves  int
	err    error
}

func (m *memBackend) Load(context.Context) (map[string]settings.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		return nil, settings.ErrNotFound
	}
	return m.values, nil
}

func (m *memBackend) Save(_ context.Context, values map[string]settings.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.values = values
	return nil
}

// recordingController captures target commands.
type recordingController struct {
	mu      sync.Mutex
	targets []float64
}

func (r *recordingController) SetTargetTemperature(c float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, c)
}

func (r *recordingController) last() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return 0, false
	}
	return r.targets[len(r.targets)-1], true
}

// busRecorder captures published events in order.
type busRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (b *busRecorder) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *busRecorder) count(typ string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// failingRecorder is a ShotRecorder whose flushes fail until fixed.
type failingRecorder struct {
	buffered int
	seq      int
	broken   bool
}

var errFlush = errors.New("flush failed")

func (f *failingRecorder) Sequence() int { return f.seq }
func (f *failingRecorder) Close() error  { return nil }

func (f *failingRecorder) AddSample(models.TelemetrySample) error {
	f.buffered++
	return nil
}

func (f *failingRecorder) Flush(newFile bool) (shotlog.Summary, error) {
	if f.broken {
		return shotlog.Summary{}, errFlush
	}
	sum := shotlog.Summary{Sequence: f.seq, Samples: f.buffered}
	f.buffered = 0
	if newFile {
		f.seq++
		sum.Rotated = true
	}
	return sum, nil
}
