package settings

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"espresso_panel/internal/logger"
)

// Backend persists the whole settings map.
type Backend interface {
	Load(ctx context.Context) (map[string]Value, error)
	Save(ctx context.Context, values map[string]Value) error
}

// Observer is notified after every Set on a key it is registered for,
// including writes of an unchanged value. Implementations are used as map
// keys and must be comparable; pointer receivers are the norm.
type Observer interface {
	OnSettingChanged(key string, v Value)
}

type entry struct {
	value     Value
	observers map[Observer]struct{}
}

// Store is the typed key/value configuration of the panel. Construct one per
// process and pass it to collaborators.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	saveMu  sync.Mutex
	backend Backend
	log     *logger.Logger
}

// NewStore returns an empty store persisting through backend.
func NewStore(backend Backend, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		entries: make(map[string]*entry),
		backend: backend,
		log:     log,
	}
}

// Get returns the value for key, or ErrNotFound if it was never written.
func (s *Store) Get(key string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !e.value.IsSet() {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return e.value, nil
}

// Float is a typed shortcut for Get(key).Float().
func (s *Store) Float(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return v.Float()
}

// BoolValue is a typed shortcut for Get(key).Bool().
func (s *Store) BoolValue(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// FloatOr returns the float at key or def when it is missing or of another kind.
func (s *Store) FloatOr(key string, def float64) float64 {
	f, err := s.Float(key)
	if err != nil {
		return def
	}
	return f
}

// Set assigns v to key, notifies observers and persists. A value of a
// different kind than the stored one is rejected with ErrTypeMismatch.
// A persistence failure is returned but the in-memory value is kept.
func (s *Store) Set(ctx context.Context, key string, v Value) error {
	return s.write(ctx, key, v, true)
}

// Overwrite assigns v regardless of the stored kind.
func (s *Store) Overwrite(ctx context.Context, key string, v Value) error {
	return s.write(ctx, key, v, false)
}

func (s *Store) write(ctx context.Context, key string, v Value, sameKind bool) error {
	if !v.IsSet() {
		return fmt.Errorf("set %q: %w", key, ErrNotFound)
	}
	if err := s.assign(key, v, sameKind); err != nil {
		return err
	}
	if err := s.Save(ctx); err != nil {
		return fmt.Errorf("persist %q: %w", key, err)
	}
	return nil
}

// assign stores v and notifies observers outside the lock so they may read
// the store back.
func (s *Store) assign(key string, v Value, sameKind bool) error {
	s.mu.Lock()
	e := s.entryLocked(key)
	if sameKind && e.value.IsSet() && e.value.Kind() != v.Kind() {
		have := e.value.Kind()
		s.mu.Unlock()
		return fmt.Errorf("set %q: %w: have %s, got %s", key, ErrTypeMismatch, have, v.Kind())
	}
	e.value = v
	observers := make([]Observer, 0, len(e.observers))
	for o := range e.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.OnSettingChanged(key, v)
	}
	return nil
}

func (s *Store) entryLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{observers: make(map[Observer]struct{})}
		s.entries[key] = e
	}
	return e
}

// Register adds o to key's observers. The key need not exist yet.
func (s *Store) Register(key string, o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(key).observers[o] = struct{}{}
}

// Deregister removes o from key's observers.
func (s *Store) Deregister(key string, o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		delete(e.observers, o)
	}
}

// All returns a copy of every set value.
func (s *Store) All() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Value, len(s.entries))
	for k, e := range s.entries {
		if e.value.IsSet() {
			out[k] = e.value
		}
	}
	return out
}

// Save writes every set value to the backend.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	values := s.All()
	if err := s.backend.Save(ctx, values); err != nil {
		s.log.Errorw("settings_save_failed", "err", err, "keys", len(values))
		return err
	}
	s.log.Debugw("settings_saved", "keys", len(values))
	return nil
}

// Load replaces values from the backend and fills in any default key the
// backend did not have. Any load failure restores the defaults and persists
// them; only a failure of that re-save is returned.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return s.LoadDefaults(ctx, false)
	}
	values, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warnw("settings_load_failed_restoring_defaults", "err", err)
		return s.LoadDefaults(ctx, true)
	}
	for k, v := range values {
		_ = s.assign(k, v, false)
	}
	var missing []string
	for k, v := range Defaults() {
		if _, ok := values[k]; !ok {
			_ = s.assign(k, v, false)
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	s.log.Infow("settings_loaded", "keys", len(values), "defaulted", missing)
	return nil
}
