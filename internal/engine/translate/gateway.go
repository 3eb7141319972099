// Package translate is the rate-limited, memoizing, single-flight client for
// user-triggered translation lookups.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
)

var (
	// ErrBusy is returned when a lookup is already outstanding. The call is
	// dropped, not queued.
	ErrBusy = errors.New("translation already in progress")
	// ErrEmptyText is returned for an empty selection.
	ErrEmptyText = errors.New("no text to translate")
)

// Result is one translation lookup answer.
type Result struct {
	UrduTranslation string   `json:"urduTranslation"`
	BestWord        string   `json:"bestWord"`
	Vocabulary      []string `json:"vocabulary"`
	Context         string   `json:"context"`
}

// Service is the external translation boundary.
type Service interface {
	Translate(ctx context.Context, text string) (Result, error)
}

// Gateway fronts a Service with an insertion-ordered cache keyed by the exact
// text, a minimum interval between dispatches and a single-flight guard.
type Gateway struct {
	svc     Service
	limiter *rate.Limiter
	busy    atomic.Bool

	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]Result
}

// NewGateway returns a Gateway dispatching at most once per interval and
// remembering up to capacity results.
func NewGateway(svc Service, interval time.Duration, capacity int) *Gateway {
	if capacity <= 0 {
		capacity = 50
	}
	return &Gateway{
		svc:      svc,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		capacity: capacity,
		entries:  make(map[string]Result, capacity),
	}
}

// Translate returns the cached result for text, or dispatches one lookup.
// A cache hit is served even while another lookup is outstanding. A miss
// during an outstanding lookup returns ErrBusy. Dispatches are spaced by
// waiting, never by dropping.
func (g *Gateway) Translate(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, ErrEmptyText
	}
	engine.IncrTranslateRequests()

	if r, ok := g.lookup(text); ok {
		engine.IncrTranslateCacheHits()
		return r, nil
	}

	if !g.busy.CompareAndSwap(false, true) {
		engine.IncrTranslateBusy()
		slog.Debug("translate: lookup already running, selection ignored")
		return Result{}, ErrBusy
	}
	defer g.busy.Store(false)

	if err := g.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("translate: %w", err)
	}

	r, err := g.svc.Translate(ctx, text)
	if err != nil {
		engine.IncrTranslateErrors()
		slog.Warn("translate: lookup failed",
			slog.String("text", engine.TruncateRunes(text, 60, "...")), slog.Any("error", err))
		return Result{}, err
	}
	g.store(text, r)
	return r, nil
}

// Len returns the number of cached results.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Cached reports whether text has a cached result.
func (g *Gateway) Cached(text string) bool {
	_, ok := g.lookup(text)
	return ok
}

func (g *Gateway) lookup(text string) (Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.entries[text]
	return r, ok
}

// store writes through, evicting the oldest inserted keys beyond capacity.
func (g *Gateway) store(text string, r Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[text]; !ok {
		g.order = append(g.order, text)
	}
	g.entries[text] = r
	for len(g.order) > g.capacity {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.entries, oldest)
	}
}
