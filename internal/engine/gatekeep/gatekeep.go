// Package gatekeep hides and restores page sections per concern.
//
// A node hidden for a concern carries that concern's marker attribute; the marker
// is the only record of the hide, so repeated passes are idempotent and a
// restore pass needs no pattern list.
package gatekeep

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/videoinfo"
)

// Exclusion reports whether a matched node must be left alone.
type Exclusion func(*goquery.Selection) bool

// Policy is the per-concern strategy list applied to every match.
type Policy struct {
	// Promote replaces a matched node with its nearest ancestor-or-self matching
	// one of these patterns. A match with no such ancestor is skipped.
	Promote []string
	// Exclude is evaluated in order; the first true skips the node.
	Exclude []Exclusion
	// BeforeHide runs once per node right before it is marked.
	BeforeHide func(*goquery.Selection)
}

// GateKeeper applies a catalog to page documents.
type GateKeeper struct {
	cat      selectors.Catalog
	policies map[selectors.Concern]Policy
}

// New builds a GateKeeper with the standard policies for cat.
func New(cat selectors.Catalog) *GateKeeper {
	return &GateKeeper{
		cat: cat,
		policies: map[selectors.Concern]Policy{
			selectors.ShortShelf: {
				BeforeHide: func(s *goquery.Selection) { logShelf(s, cat) },
			},
			selectors.ShortsNavButton: {
				Promote: cat.ShortsNavContainers,
			},
			selectors.WatchSuggestion: {
				Exclude: []Exclusion{insidePlaylist(cat.PlaylistPanel)},
			},
			selectors.HomepageItem: {
				Exclude: []Exclusion{pageChrome},
			},
		},
	}
}

// Catalog returns the catalog in use.
func (g *GateKeeper) Catalog() selectors.Catalog { return g.cat }

// Apply hides (enabled) or restores (disabled) every node of concern c and
// returns how many nodes changed visibility. A node another concern still
// claims loses the marker of c but is not counted as restored.
func (g *GateKeeper) Apply(doc *page.Document, c selectors.Concern, enabled bool) int {
	if !enabled {
		return g.restore(doc, c)
	}
	return g.hide(doc, c)
}

func (g *GateKeeper) hide(doc *page.Document, c selectors.Concern) int {
	marker := c.Marker()
	policy := g.policies[c]
	hidden := 0
	for _, pattern := range g.cat.Patterns(c) {
		n, err := g.hidePattern(doc, pattern, marker, policy)
		if err != nil {
			engine.IncrSelectorErrors()
			slog.Warn("gatekeep: pattern failed",
				slog.String("concern", string(c)), slog.String("pattern", pattern), slog.Any("error", err))
			continue
		}
		hidden += n
	}
	if hidden > 0 {
		engine.IncrHidden(string(c), hidden)
		slog.Info("gatekeep: hidden", slog.String("concern", string(c)), slog.Int("count", hidden))
	}
	return hidden
}

// hidePattern runs one pattern. A panic inside a policy hook fails only this pattern.
func (g *GateKeeper) hidePattern(doc *page.Document, pattern, marker string, policy Policy) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	matches, err := doc.Query(pattern)
	if err != nil {
		return 0, err
	}
	matches.Each(func(_ int, node *goquery.Selection) {
		target := node
		if len(policy.Promote) > 0 {
			target = page.ClosestAny(node, policy.Promote)
			if target.Length() == 0 {
				return
			}
		}
		if page.HasMarker(target, marker) {
			return
		}
		for _, skip := range policy.Exclude {
			if skip(target) {
				slog.Debug("gatekeep: excluded", slog.String("pattern", pattern))
				return
			}
		}
		if policy.BeforeHide != nil {
			policy.BeforeHide(target)
		}
		page.SetMarker(target, marker)
		page.Hide(target)
		n++
	})
	return n, nil
}

// restore clears the marker of c everywhere. The forced display is only
// dropped once no other concern still claims the node.
func (g *GateKeeper) restore(doc *page.Document, c selectors.Concern) int {
	marker := c.Marker()
	marked, err := doc.Query("[" + marker + "]")
	if err != nil {
		return 0
	}
	restored := 0
	marked.Each(func(_ int, node *goquery.Selection) {
		page.ClearMarker(node, marker)
		if claimedByOther(node, c) {
			return
		}
		page.Unhide(node)
		restored++
	})
	if restored > 0 {
		engine.IncrRestored(restored)
		slog.Info("gatekeep: restored", slog.String("concern", string(c)), slog.Int("count", restored))
	}
	return restored
}

// Marked counts nodes currently hidden for c.
func Marked(doc *page.Document, c selectors.Concern) int {
	sel, err := doc.Query("[" + c.Marker() + "]")
	if err != nil {
		return 0
	}
	return sel.Length()
}

func claimedByOther(node *goquery.Selection, c selectors.Concern) bool {
	for _, other := range selectors.Concerns {
		if other != c && page.HasMarker(node, other.Marker()) {
			return true
		}
	}
	return false
}

// pageChrome matches navigation and banner shells that share tags with grid items.
func pageChrome(s *goquery.Selection) bool {
	switch s.AttrOr("role", "") {
	case "navigation", "banner":
		return true
	}
	label := s.AttrOr("aria-label", "")
	return strings.Contains(label, "header") || strings.Contains(label, "navigation")
}

// insidePlaylist matches nodes inside an active playlist queue.
func insidePlaylist(panel []string) Exclusion {
	return func(s *goquery.Selection) bool {
		if strings.Contains(s.AttrOr("id", ""), "playlist") {
			return true
		}
		return page.ClosestAny(s, panel).Length() > 0
	}
}

func logShelf(s *goquery.Selection, cat selectors.Catalog) {
	engine.IncrShelvesInspected()
	videos := videoinfo.Extract(s, cat)
	if len(videos) == 0 {
		slog.Info("gatekeep: shelf has no recognisable videos")
		return
	}
	for i, v := range videos {
		slog.Info("gatekeep: shelf video",
			slog.Int("n", i+1), slog.String("title", engine.TruncateRunes(v.Title, 120, "...")), slog.String("channel", v.Channel))
	}
}
