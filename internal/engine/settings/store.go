package settings

import (
	"context"
	"sync"
)

// Store persists flags and reports changes. Notifications carry only keys
// whose stored value changed; unknown keys are ignored on both paths.
type Store interface {
	Get(ctx context.Context, keys []Key) (Changes, error)
	Set(ctx context.Context, partial Changes) error
	OnChange(fn func(Changes)) (cancel func())
}

// Load reads every key from store over Defaults.
func Load(ctx context.Context, store Store) (Settings, error) {
	stored, err := store.Get(ctx, Keys)
	if err != nil {
		return Defaults(), err
	}
	return Defaults().Apply(stored), nil
}

// listeners fans one value out to registered callbacks.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) subscribe(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners[T]) notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// MemoryStore keeps flags in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[Key]bool
	subs   listeners[Changes]
}

// NewMemoryStore returns an empty store; Load falls back to Defaults.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Key]bool)}
}

// Get returns the stored values among keys.
func (m *MemoryStore) Get(_ context.Context, keys []Key) (Changes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := Changes{}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set stores the known keys of partial and notifies about the ones that changed.
func (m *MemoryStore) Set(_ context.Context, partial Changes) error {
	changed := Changes{}
	m.mu.Lock()
	for k, v := range partial {
		if !Known(k) {
			continue
		}
		if old, ok := m.values[k]; !ok || old != v {
			changed[k] = v
		}
		m.values[k] = v
	}
	m.mu.Unlock()
	if len(changed) > 0 {
		m.subs.notify(changed)
	}
	return nil
}

// OnChange registers fn; the returned func unregisters it.
func (m *MemoryStore) OnChange(fn func(Changes)) func() { return m.subs.subscribe(fn) }
