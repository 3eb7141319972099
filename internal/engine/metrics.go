package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ElementsHidden        atomic.Int64
	ElementsRestored      atomic.Int64
	SelectorErrors        atomic.Int64
	ShelvesInspected      atomic.Int64
	CaptionRuns           atomic.Int64
	CaptionFailures       atomic.Int64
	CaptionAbsent         atomic.Int64
	CaptionStale          atomic.Int64
	PlayerAPIRequests     atomic.Int64
	TimedTextRequests     atomic.Int64
	TranslateRequests     atomic.Int64
	TranslateCacheHits    atomic.Int64
	TranslateBusy         atomic.Int64
	TranslateErrors       atomic.Int64
	LLMCalls              atomic.Int64
	LLMErrors             atomic.Int64
	PageFetches           atomic.Int64
	PageRenders           atomic.Int64
}

// per-concern hide counters, keyed by concern name.
var concernHidden sync.Map // string → *atomic.Int64

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"elements_hidden":       metrics.ElementsHidden.Load(),
		"elements_restored":     metrics.ElementsRestored.Load(),
		"selector_errors":       metrics.SelectorErrors.Load(),
		"shelves_inspected":     metrics.ShelvesInspected.Load(),
		"caption_runs":          metrics.CaptionRuns.Load(),
		"caption_failures":      metrics.CaptionFailures.Load(),
		"caption_absent":        metrics.CaptionAbsent.Load(),
		"caption_stale":         metrics.CaptionStale.Load(),
		"player_api_requests":   metrics.PlayerAPIRequests.Load(),
		"timedtext_requests":    metrics.TimedTextRequests.Load(),
		"translate_requests":    metrics.TranslateRequests.Load(),
		"translate_cache_hits":  metrics.TranslateCacheHits.Load(),
		"translate_busy":        metrics.TranslateBusy.Load(),
		"translate_errors":      metrics.TranslateErrors.Load(),
		"llm_calls":             metrics.LLMCalls.Load(),
		"llm_errors":            metrics.LLMErrors.Load(),
		"page_fetches":          metrics.PageFetches.Load(),
		"page_renders":          metrics.PageRenders.Load(),
		"cache_hits":            hits,
		"cache_misses":          misses,
	}
	concernHidden.Range(func(k, v any) bool {
		m["hidden_"+k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"elements_hidden", "elements_restored", "selector_errors", "shelves_inspected",
		"caption_runs", "caption_failures", "caption_absent", "caption_stale",
		"player_api_requests", "timedtext_requests",
		"translate_requests", "translate_cache_hits", "translate_busy", "translate_errors",
		"llm_calls", "llm_errors",
		"page_fetches", "page_renders",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
		delete(m, k)
	}
	for k, v := range m {
		fmt.Fprintf(&sb, "%s %d\n", k, v)
	}
	return sb.String()
}

// IncrHidden records n newly hidden elements for a concern.
func IncrHidden(concern string, n int) {
	if n <= 0 {
		return
	}
	metrics.ElementsHidden.Add(int64(n))
	v, _ := concernHidden.LoadOrStore(concern, new(atomic.Int64))
	v.(*atomic.Int64).Add(int64(n))
}

// IncrRestored records n restored elements.
func IncrRestored(n int) {
	if n > 0 {
		metrics.ElementsRestored.Add(int64(n))
	}
}

// Incrementors for sub-packages.
func IncrSelectorErrors()     { metrics.SelectorErrors.Add(1) }
func IncrShelvesInspected()   { metrics.ShelvesInspected.Add(1) }
func IncrCaptionRuns()        { metrics.CaptionRuns.Add(1) }
func IncrCaptionFailures()    { metrics.CaptionFailures.Add(1) }
func IncrCaptionAbsent()      { metrics.CaptionAbsent.Add(1) }
func IncrCaptionStale()       { metrics.CaptionStale.Add(1) }
func IncrPlayerAPIRequests()  { metrics.PlayerAPIRequests.Add(1) }
func IncrTimedTextRequests()  { metrics.TimedTextRequests.Add(1) }
func IncrTranslateRequests()  { metrics.TranslateRequests.Add(1) }
func IncrTranslateCacheHits() { metrics.TranslateCacheHits.Add(1) }
func IncrTranslateBusy()      { metrics.TranslateBusy.Add(1) }
func IncrTranslateErrors()    { metrics.TranslateErrors.Add(1) }
func IncrPageFetches()        { metrics.PageFetches.Add(1) }
func IncrPageRenders()        { metrics.PageRenders.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
