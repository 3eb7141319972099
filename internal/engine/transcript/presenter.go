// Package transcript presents chunked captions as a playback-synced panel.
package transcript

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
)

// ScrollCooldown is how long auto-scroll stays paused after a manual scroll.
const ScrollCooldown = 3 * time.Second

// Scroller moves the panel so that line index sits in its centre.
type Scroller interface {
	ScrollTo(index int, smooth bool)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(p *Presenter) { p.now = now } }

// WithScroller sets the scroll target; the default records the index on the rendered panel.
func WithScroller(s Scroller) Option { return func(p *Presenter) { p.scroller = s } }

// WithCooldown overrides ScrollCooldown.
func WithCooldown(d time.Duration) Option { return func(p *Presenter) { p.cooldown = d } }

// Presenter owns one video's transcript and its sync state.
type Presenter struct {
	mu         sync.Mutex
	videoID    string
	chunks     []captions.Chunk
	lines      []captions.Line
	active     int
	lastScroll time.Time
	cooldown   time.Duration
	now        func() time.Time
	scroller   Scroller
	panel      *panelScroller
}

// New builds a Presenter for videoID.
func New(videoID string, chunks []captions.Chunk, opts ...Option) *Presenter {
	p := &Presenter{
		videoID:  videoID,
		chunks:   chunks,
		lines:    captions.Lines(chunks),
		active:   -1,
		cooldown: ScrollCooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// VideoID returns the video the transcript belongs to.
func (p *Presenter) VideoID() string { return p.videoID }

// Chunks returns the chunked transcript.
func (p *Presenter) Chunks() []captions.Chunk { return p.chunks }

// Active returns the index of the current active line, or -1.
func (p *Presenter) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// ActiveIndex returns the first line whose [start, start+duration) window holds t,
// or -1. Lines with a non-positive duration are never active.
func (p *Presenter) ActiveIndex(t float64) int {
	for i, l := range p.lines {
		if t >= l.Start && t < l.Start+l.Duration {
			return i
		}
	}
	return -1
}

// OnTimeUpdate handles a playback tick. When the active line changes and no manual
// scroll happened within the cool-down, the new line is scrolled to the centre.
// Reports whether a scroll was issued.
func (p *Presenter) OnTimeUpdate(t float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.ActiveIndex(t)
	if idx == p.active {
		return false
	}
	p.active = idx
	if p.panel != nil {
		p.panel.markActive(idx)
	}
	if idx < 0 || p.now().Sub(p.lastScroll) < p.cooldown {
		return false
	}
	p.scrollTo(idx)
	return true
}

// OnUserScroll restarts the auto-scroll cool-down.
func (p *Presenter) OnUserScroll() {
	p.mu.Lock()
	p.lastScroll = p.now()
	p.mu.Unlock()
}

// Sync scrolls to the active line for t, or to the line starting nearest t.
// Returns the index scrolled to, or -1 for an empty transcript.
func (p *Presenter) Sync(t float64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.ActiveIndex(t)
	if idx < 0 {
		best := math.Inf(1)
		for i, l := range p.lines {
			if d := math.Abs(t - l.Start); d < best {
				best, idx = d, i
			}
		}
	}
	if idx >= 0 {
		p.scrollTo(idx)
	}
	return idx
}

func (p *Presenter) scrollTo(idx int) {
	if p.scroller != nil {
		p.scroller.ScrollTo(idx, true)
		return
	}
	if p.panel != nil {
		p.panel.ScrollTo(idx, true)
	}
}

// CopyText serialises every chunk as "[timestamp] line line ...", chunks
// separated by a blank line.
func (p *Presenter) CopyText() string {
	parts := make([]string, 0, len(p.chunks))
	for _, c := range p.chunks {
		texts := make([]string, len(c.Lines))
		for i, l := range c.Lines {
			texts[i] = l.Text
		}
		parts = append(parts, "["+FormatTimestamp(c.Start)+"] "+strings.Join(texts, " "))
	}
	return strings.Join(parts, "\n\n")
}

// Copy writes CopyText to cb.
func (p *Presenter) Copy(cb Clipboard) error {
	if err := cb.WriteText(p.CopyText()); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}

// FormatTimestamp renders seconds as MM:SS under one hour, else HH:MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(math.Floor(seconds))
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h == 0 {
		return fmt.Sprintf("%02d:%02d", m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
