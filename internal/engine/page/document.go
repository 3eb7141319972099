// Package page wraps a parsed HTML tree that stands in for the live page.
// Every hide/show edit made by the engine lands in this tree.
package page

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// playerResponseMarker marks the start of the player response JSON in inline scripts.
const playerResponseMarker = "ytInitialPlayerResponse = "

// Document is a parsed page plus its current address and in-page player state.
type Document struct {
	doc    *goquery.Document
	url    *url.URL
	player json.RawMessage
}

// Parse reads HTML from r and records rawURL as the page address.
func Parse(r io.Reader, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{doc: doc, url: u}
	d.player = scanPlayerResponse(doc)
	return d, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(html, rawURL string) (*Document, error) {
	return Parse(strings.NewReader(html), rawURL)
}

// Root returns the document selection.
func (d *Document) Root() *goquery.Selection { return d.doc.Selection }

// URL returns a copy of the current page address.
func (d *Document) URL() *url.URL {
	u := *d.url
	return &u
}

// Navigate moves the page to rawURL without reloading the tree.
// The in-page player state belongs to the first load and is dropped.
func (d *Document) Navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	d.url = u
	d.player = nil
	return nil
}

// PlayerResponse returns the in-page player response object, if one was found.
func (d *Document) PlayerResponse() (json.RawMessage, bool) {
	return d.player, len(d.player) > 0
}

// SetPlayerResponse installs player state captured elsewhere (e.g. a rendered snapshot).
func (d *Document) SetPlayerResponse(raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		d.player = nil
		return
	}
	d.player = raw
}

// CanonicalURL returns the href of the canonical link, or "".
func (d *Document) CanonicalURL() string {
	href, _ := d.doc.Find(`link[rel="canonical"]`).First().Attr("href")
	return href
}

// HTML serialises the whole tree.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// Compile parses a pattern into a matcher. Unsupported syntax is an error, never a panic.
func Compile(pattern string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", pattern, err)
	}
	return sel, nil
}

// Query finds every descendant of the document matching pattern.
func (d *Document) Query(pattern string) (*goquery.Selection, error) {
	return QueryWithin(d.doc.Selection, pattern)
}

// QueryWithin finds descendants of s matching pattern.
func QueryWithin(s *goquery.Selection, pattern string) (*goquery.Selection, error) {
	m, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return s.FindMatcher(m), nil
}

// ClosestAny returns the nearest ancestor-or-self of s matching any of patterns.
// Patterns that fail to compile are skipped.
func ClosestAny(s *goquery.Selection, patterns []string) *goquery.Selection {
	if len(patterns) == 0 {
		return s.Slice(0, 0)
	}
	m, err := Compile(strings.Join(patterns, ", "))
	if err != nil {
		for _, p := range patterns {
			if pm, perr := Compile(p); perr == nil {
				if c := s.ClosestMatcher(pm); c.Length() > 0 {
					return c
				}
			}
		}
		return s.Slice(0, 0)
	}
	return s.ClosestMatcher(m)
}

func scanPlayerResponse(doc *goquery.Document) json.RawMessage {
	var found json.RawMessage
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, playerResponseMarker)
		if idx < 0 {
			return true
		}
		obj := ExtractJSONObject([]byte(text[idx+len(playerResponseMarker):]))
		if obj != nil && json.Valid(obj) {
			found = obj
			return false
		}
		return true
	})
	return found
}

// ExtractJSONObject extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func ExtractJSONObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
