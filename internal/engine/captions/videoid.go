package captions

import (
	"encoding/json"
	"net/url"
	"regexp"
)

// Source is the page state the pipeline reads. *page.Document satisfies it.
type Source interface {
	URL() *url.URL
	PlayerResponse() (json.RawMessage, bool)
	CanonicalURL() string
}

var (
	queryIDRe     = regexp.MustCompile(`[?&]v=([^&]+)`)
	watchPathIDRe = regexp.MustCompile(`watch/([a-zA-Z0-9_-]+)`)
	hrefQueryIDRe = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]+)`)
)

// ResolveVideoID returns the current video id, trying in order: the URL's v
// parameter, the in-page player response, the canonical link, and a regex
// over the raw URL. Returns "" when all four come up empty.
func ResolveVideoID(src Source) string {
	u := src.URL()
	if u != nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}

	if raw, ok := src.PlayerResponse(); ok {
		var pr playerResponse
		if json.Unmarshal(raw, &pr) == nil {
			if id := pr.videoID(); id != "" {
				return id
			}
		}
	}

	if canon := src.CanonicalURL(); canon != "" {
		if m := queryIDRe.FindStringSubmatch(canon); m != nil {
			return m[1]
		}
		if m := watchPathIDRe.FindStringSubmatch(canon); m != nil {
			return m[1]
		}
	}

	if u != nil {
		href := u.String()
		if m := hrefQueryIDRe.FindStringSubmatch(href); m != nil {
			return m[1]
		}
		if m := watchPathIDRe.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

// urlSource is a Source backed by an address alone.
type urlSource struct{ u *url.URL }

func (s urlSource) URL() *url.URL                          { return s.u }
func (s urlSource) PlayerResponse() (json.RawMessage, bool) { return nil, false }
func (s urlSource) CanonicalURL() string                    { return "" }

// FromURL returns a Source with no page content, for lookups by address.
func FromURL(rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return urlSource{u: u}, nil
}

type snapshot struct {
	u         *url.URL
	player    json.RawMessage
	canonical string
}

func (s snapshot) URL() *url.URL { return s.u }
func (s snapshot) PlayerResponse() (json.RawMessage, bool) {
	return s.player, len(s.player) > 0
}
func (s snapshot) CanonicalURL() string { return s.canonical }

// Snapshot copies what src exposes, so a pipeline can run without holding
// the lock that guards src.
func Snapshot(src Source) Source {
	s := snapshot{u: src.URL(), canonical: src.CanonicalURL()}
	if raw, ok := src.PlayerResponse(); ok {
		s.player = append(json.RawMessage(nil), raw...)
	}
	return s
}
