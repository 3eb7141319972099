// Package orchestrator decides which concerns apply to the current page and
// drives the gatekeeper, the caption pipeline, the transcript panel and the
// translation gateway from settings changes, mutations, navigation, playback
// and selection events.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/gatekeep"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/transcript"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
)

// DefaultThrottle is the trailing-edge window per concern group.
const DefaultThrottle = 100 * time.Millisecond

// MaxSelection bounds the selected text length, in characters.
const MaxSelection = 300

var (
	// ErrSelectionIgnored means the selection does not qualify for a lookup.
	ErrSelectionIgnored = errors.New("selection ignored")
	// ErrNoTranscript means no transcript panel is active.
	ErrNoTranscript = errors.New("no transcript")
)

// PageClass is the coarse page type that decides which concerns run.
type PageClass int

const (
	Other PageClass = iota
	Home
	Watch
)

func (c PageClass) String() string {
	switch c {
	case Home:
		return "home"
	case Watch:
		return "watch"
	}
	return "other"
}

// Classify maps an address to its page class. Shorts pages are never watch pages.
func Classify(u *url.URL) PageClass {
	if u == nil {
		return Other
	}
	href := u.String()
	if strings.Contains(href, "/watch") && !strings.Contains(href, "/shorts") {
		return Watch
	}
	if u.Path == "/" || u.Path == "" {
		return Home
	}
	return Other
}

// CaptionSource yields chunked captions; *captions.Pipeline satisfies it.
type CaptionSource interface {
	Cached(ctx context.Context, src captions.Source) (*captions.Result, error)
}

// Translator answers selection lookups; *translate.Gateway satisfies it.
type Translator interface {
	Translate(ctx context.Context, text string) (translate.Result, error)
}

// Options configures an Orchestrator. Zero fields take defaults.
type Options struct {
	Throttle   time.Duration
	Captions   CaptionSource
	Translator Translator
	Presenter  []transcript.Option
	// OnPass is called after every throttled pass, with the nodes it changed.
	OnPass func(g Group, changed int)
}

// Report is the outcome of one ApplyAll.
type Report struct {
	Class   PageClass                 `json:"page_class"`
	Changed map[selectors.Concern]int `json:"changed"`
	Hidden  map[selectors.Concern]int `json:"hidden"`
	Loading string                    `json:"transcript_loading,omitempty"`
}

// Orchestrator owns one page document. mu guards the document and the
// transcript state; every DOM path takes it.
type Orchestrator struct {
	ctx      context.Context
	gk       *gatekeep.GateKeeper
	settings *settings.Controller
	opts     Options
	unsub    func()

	mu        sync.Mutex
	doc       *page.Document
	presenter *transcript.Presenter
	pending   string

	timersMu sync.Mutex
	timers   map[Group]*pendingPass

	wg sync.WaitGroup
}

// New wires an Orchestrator to doc. Every effective settings change triggers
// an immediate ApplyAll. ctx bounds background caption fetches.
func New(ctx context.Context, doc *page.Document, gk *gatekeep.GateKeeper, ctrl *settings.Controller, opts Options) *Orchestrator {
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.Captions == nil {
		opts.Captions = captions.NewPipeline()
	}
	o := &Orchestrator{
		ctx:      ctx,
		gk:       gk,
		settings: ctrl,
		opts:     opts,
		doc:      doc,
		timers:   make(map[Group]*pendingPass),
	}
	o.unsub = ctrl.Subscribe(func(_ settings.Settings, changes settings.Changes) {
		slog.Debug("orchestrator: settings changed, reapplying", slog.Any("keys", changes.Keys()))
		o.ApplyAll()
	})
	return o
}

// Close stops following settings, cancels pending passes and waits for
// caption fetches in flight.
func (o *Orchestrator) Close() {
	o.unsub()
	o.timersMu.Lock()
	for g, p := range o.timers {
		p.timer.Stop()
		delete(o.timers, g)
	}
	o.timersMu.Unlock()
	o.wg.Wait()
}

// Wait blocks until caption fetches in flight have been handled.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// View runs fn with the document under the lock.
func (o *Orchestrator) View(fn func(doc *page.Document) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(o.doc)
}

// ApplyAll runs every concern for the current page class now.
func (o *Orchestrator) ApplyAll() Report {
	s := o.settings.Current()

	o.mu.Lock()
	defer o.mu.Unlock()

	class := Classify(o.doc.URL())
	rep := Report{Class: class, Changed: map[selectors.Concern]int{}, Hidden: map[selectors.Concern]int{}}
	for _, g := range groupsFor(class) {
		if g == TranscriptGroup {
			rep.Loading = o.transcriptLocked(s)
			continue
		}
		for _, c := range g.concerns() {
			rep.Changed[c] = o.gk.Apply(o.doc, c, g.enabled(s))
			rep.Hidden[c] = gatekeep.Marked(o.doc, c)
		}
	}
	slog.Debug("orchestrator: applied", slog.String("class", class.String()), slog.Any("changed", rep.Changed))
	return rep
}

// OnMutation schedules a throttled pass of the hide groups for the current page.
func (o *Orchestrator) OnMutation() {
	o.mu.Lock()
	class := Classify(o.doc.URL())
	o.mu.Unlock()
	for _, g := range groupsFor(class) {
		if g != TranscriptGroup {
			o.schedule(g)
		}
	}
}

// OnNavigate moves the document to rawURL and schedules a throttled pass of
// every group for the new page, the transcript included.
func (o *Orchestrator) OnNavigate(rawURL string) error {
	o.mu.Lock()
	err := o.doc.Navigate(rawURL)
	class := Classify(o.doc.URL())
	o.mu.Unlock()
	if err != nil {
		return err
	}
	for _, g := range groupsFor(class) {
		o.schedule(g)
	}
	return nil
}

// transcriptLocked shows, refreshes or removes the panel. A fetch runs in a
// goroutine; it returns the video id being loaded, if any.
func (o *Orchestrator) transcriptLocked(s settings.Settings) string {
	if !s.ShowTranscript {
		transcript.Remove(o.doc)
		o.presenter = nil
		o.pending = ""
		return ""
	}
	id := captions.ResolveVideoID(o.doc)
	if id == "" {
		return ""
	}
	if o.presenter != nil && o.presenter.VideoID() == id && transcript.RenderedVideoID(o.doc) == id {
		return ""
	}
	if o.pending == id {
		return id
	}
	o.pending = id
	src := captions.Snapshot(o.doc)
	o.wg.Add(1)
	go o.loadCaptions(id, src)
	return id
}

func (o *Orchestrator) loadCaptions(id string, src captions.Source) {
	defer o.wg.Done()
	res, err := o.opts.Captions.Cached(o.ctx, src)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == id {
		o.pending = ""
	}
	if current := captions.ResolveVideoID(o.doc); current != id || !o.settings.Current().ShowTranscript {
		engine.IncrCaptionStale()
		slog.Debug("orchestrator: discarding stale captions", slog.String("video", id), slog.String("current", current))
		return
	}
	if err != nil {
		o.presenter = nil
		transcript.RenderUnavailable(o.doc)
		return
	}
	p := transcript.New(id, res.Chunks, o.opts.Presenter...)
	if err := p.Render(o.doc); err != nil {
		slog.Warn("orchestrator: transcript render failed", slog.String("video", id), slog.Any("error", err))
		return
	}
	o.presenter = p
	slog.Info("orchestrator: transcript shown", slog.String("video", id), slog.Int("chunks", len(res.Chunks)))
}

// Presenter returns the active transcript presenter, or nil.
func (o *Orchestrator) Presenter() *transcript.Presenter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presenter
}

// OnTimeUpdate forwards a playback tick to the panel.
func (o *Orchestrator) OnTimeUpdate(t float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.presenter != nil {
		o.presenter.OnTimeUpdate(t)
	}
}

// OnPanelScroll records a manual scroll of the panel.
func (o *Orchestrator) OnPanelScroll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.presenter != nil {
		o.presenter.OnUserScroll()
	}
}

// SyncTranscript scrolls the panel to playback time t.
func (o *Orchestrator) SyncTranscript(t float64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.presenter == nil {
		return -1, ErrNoTranscript
	}
	return o.presenter.Sync(t), nil
}

// CopyTranscript writes the transcript text to cb.
func (o *Orchestrator) CopyTranscript(cb transcript.Clipboard) error {
	o.mu.Lock()
	p := o.presenter
	o.mu.Unlock()
	if p == nil {
		return ErrNoTranscript
	}
	return p.Copy(cb)
}

// OnSelection looks up text selected at target. Only non-empty selections
// shorter than MaxSelection inside a transcript line qualify.
func (o *Orchestrator) OnSelection(ctx context.Context, target *goquery.Selection, text string) (translate.Result, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n >= MaxSelection {
		return translate.Result{}, ErrSelectionIgnored
	}
	o.mu.Lock()
	inside := transcript.InTranscriptLine(target)
	o.mu.Unlock()
	if !inside || o.opts.Translator == nil {
		return translate.Result{}, ErrSelectionIgnored
	}
	return o.opts.Translator.Translate(ctx, text)
}
