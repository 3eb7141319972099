package settings

import (
	"context"
	"log/slog"
	"sync"
)

type update struct {
	settings Settings
	changes  Changes
}

// Controller owns the current Settings. Store notifications are the only
// path that replaces the value; subscribers get the new snapshot and the
// keys that actually changed.
type Controller struct {
	store  Store
	cancel func()

	mu  sync.RWMutex
	cur Settings

	subs listeners[update]
}

// NewController loads the current flags from store and follows its changes.
// A failed load starts from Defaults.
func NewController(ctx context.Context, store Store) *Controller {
	cur, err := Load(ctx, store)
	if err != nil {
		slog.Warn("settings: load failed, using defaults", slog.Any("error", err))
	}
	c := &Controller{store: store, cur: cur}
	c.cancel = store.OnChange(c.apply)
	return c
}

// Current returns the current snapshot.
func (c *Controller) Current() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Update writes partial to the store; the store's notification updates the value.
func (c *Controller) Update(ctx context.Context, partial Changes) error {
	return c.store.Set(ctx, partial)
}

// Subscribe registers fn for every effective change.
func (c *Controller) Subscribe(fn func(Settings, Changes)) (cancel func()) {
	return c.subs.subscribe(func(u update) { fn(u.settings, u.changes) })
}

// Close stops following the store.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) apply(changes Changes) {
	c.mu.Lock()
	diff := c.cur.Diff(changes)
	if len(diff) == 0 {
		c.mu.Unlock()
		return
	}
	c.cur = c.cur.Apply(diff)
	snap := c.cur
	c.mu.Unlock()

	slog.Info("settings: changed", slog.Any("keys", diff.Keys()))
	c.subs.notify(update{settings: snap, changes: diff})
}
