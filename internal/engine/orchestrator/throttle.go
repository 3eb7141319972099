package orchestrator

import (
	"slices"
	"time"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
)

// Group is a set of concerns sharing one throttle window and one flag.
type Group string

const (
	ShortsGroup       Group = "shorts"
	ShortsButtonGroup Group = "shorts_button"
	SuggestionsGroup  Group = "suggestions"
	HomepageGroup     Group = "homepage"
	TranscriptGroup   Group = "transcript"
)

func (g Group) concerns() []selectors.Concern {
	switch g {
	case ShortsGroup:
		return []selectors.Concern{selectors.ShortShelf}
	case ShortsButtonGroup:
		return []selectors.Concern{selectors.ShortsNavButton}
	case SuggestionsGroup:
		return []selectors.Concern{selectors.WatchSuggestion, selectors.EndScreenSuggestion}
	case HomepageGroup:
		return []selectors.Concern{selectors.HomepageItem}
	}
	return nil
}

func (g Group) enabled(s settings.Settings) bool {
	switch g {
	case ShortsGroup:
		return s.RemoveShorts
	case ShortsButtonGroup:
		return s.RemoveShortsButton
	case SuggestionsGroup:
		return s.RemoveWatchPageSuggestions
	case HomepageGroup:
		return s.RemoveHomepageVideos
	case TranscriptGroup:
		return s.ShowTranscript
	}
	return false
}

// groupsFor lists the groups that run on a page class, in order.
func groupsFor(c PageClass) []Group {
	out := []Group{ShortsGroup, ShortsButtonGroup}
	switch c {
	case Watch:
		out = append(out, SuggestionsGroup, TranscriptGroup)
	case Home:
		out = append(out, HomepageGroup)
	}
	return out
}

type pendingPass struct {
	timer *time.Timer
}

// schedule (re)arms g's trailing-edge timer: each trigger pushes the pass
// back, and it fires once the group has been quiet for the window.
func (o *Orchestrator) schedule(g Group) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	if p, ok := o.timers[g]; ok {
		p.timer.Stop()
	}
	p := &pendingPass{}
	p.timer = time.AfterFunc(o.opts.Throttle, func() {
		o.timersMu.Lock()
		if o.timers[g] != p {
			o.timersMu.Unlock()
			return
		}
		delete(o.timers, g)
		o.timersMu.Unlock()
		o.runGroup(g)
	})
	o.timers[g] = p
}

// Flush runs every pending pass now.
func (o *Orchestrator) Flush() {
	o.timersMu.Lock()
	groups := make([]Group, 0, len(o.timers))
	for g, p := range o.timers {
		p.timer.Stop()
		delete(o.timers, g)
		groups = append(groups, g)
	}
	o.timersMu.Unlock()
	for _, g := range groups {
		o.runGroup(g)
	}
}

// Pending reports whether g has a pass scheduled.
func (o *Orchestrator) Pending(g Group) bool {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	_, ok := o.timers[g]
	return ok
}

func (o *Orchestrator) runGroup(g Group) {
	s := o.settings.Current()
	changed := 0

	o.mu.Lock()
	switch {
	case !slices.Contains(groupsFor(Classify(o.doc.URL())), g):
		// navigated away since the pass was scheduled
	case g == TranscriptGroup:
		o.transcriptLocked(s)
	default:
		for _, c := range g.concerns() {
			changed += o.gk.Apply(o.doc, c, g.enabled(s))
		}
	}
	o.mu.Unlock()

	if o.opts.OnPass != nil {
		o.opts.OnPass(g, changed)
	}
}
