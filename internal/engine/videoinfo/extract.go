// Package videoinfo recovers (title, channel) pairs from a shelf of video items.
// It only reads the tree; results feed diagnostic log lines.
package videoinfo

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
)

// UnknownChannel is recorded when a title was found but no channel passed validation.
const UnknownChannel = "Unknown Channel"

// shortsLabel is the section label that sometimes sits where a title or channel should be.
const shortsLabel = "Shorts"

// maxChannelLen rejects candidates too long to be a channel name.
const maxChannelLen = 100

var (
	embeddedByRe = regexp.MustCompile(`(?i)\s+by:\s*(@?\w+)`)
	byPrefixRe   = regexp.MustCompile(`(?i)^by\s+`)
)

// VideoInfo is one recovered item.
type VideoInfo struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

// extractor holds the compiled pattern lists for one call.
type extractor struct {
	containers []cascadia.Selector
	titles     []cascadia.Selector
	channels   []cascadia.Selector
	deny       selectors.Denylist
}

// Extract walks the item containers inside shelf and returns one entry per distinct
// (title, channel) pair. It never mutates the tree and never panics.
func Extract(shelf *goquery.Selection, cat selectors.Catalog) []VideoInfo {
	x := extractor{
		containers: compileAll(cat.ItemContainers),
		titles:     compileAll(cat.TitlePatterns),
		channels:   compileAll(cat.ChannelPatterns),
		deny:       cat.Denylist,
	}

	var out []VideoInfo
	seen := make(map[VideoInfo]bool)
	for _, cm := range x.containers {
		shelf.FindMatcher(cm).Each(func(_ int, item *goquery.Selection) {
			info, ok := x.item(item)
			if !ok || seen[info] {
				return
			}
			seen[info] = true
			out = append(out, info)
		})
	}
	return out
}

// item extracts one entry; a panic inside the lookups skips the item.
func (x extractor) item(item *goquery.Selection) (info VideoInfo, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("videoinfo: item skipped", slog.Any("panic", r))
			info, ok = VideoInfo{}, false
		}
	}()

	title, embedded := x.title(item)
	if title == "" {
		return VideoInfo{}, false
	}
	channel := x.channel(item, title)
	if channel == "" {
		channel = embedded
	}
	if channel == "" {
		channel = UnknownChannel
	}
	return VideoInfo{Title: title, Channel: channel}, true
}

// title returns the first usable title and any channel handle embedded in it.
func (x extractor) title(item *goquery.Selection) (title, embedded string) {
	for _, m := range x.titles {
		el := item.FindMatcher(m).First()
		if el.Length() == 0 {
			continue
		}
		candidate, hasAttr := el.Attr("title")
		if !hasAttr {
			candidate = strings.TrimSpace(el.Text())
		}
		if candidate == "" || strings.TrimSpace(candidate) == shortsLabel {
			continue
		}
		if sm := embeddedByRe.FindStringSubmatch(candidate); sm != nil {
			handle := sm[1]
			if !strings.HasPrefix(handle, "@") {
				handle = "@" + handle
			}
			candidate = strings.TrimSpace(embeddedByRe.ReplaceAllString(candidate, ""))
			embedded = handle
		}
		return candidate, embedded
	}
	return "", ""
}

// channel returns the first candidate passing validation, or "".
func (x extractor) channel(item *goquery.Selection, title string) string {
	for _, m := range x.channels {
		el := item.FindMatcher(m).First()
		if el.Length() == 0 {
			continue
		}
		candidate := strings.TrimSpace(el.AttrOr("title", ""))
		if candidate == "" {
			candidate = strings.TrimSpace(el.Text())
		}
		candidate = strings.TrimSpace(byPrefixRe.ReplaceAllString(candidate, ""))
		if candidate == "" {
			if href, ok := el.Attr("href"); ok {
				candidate = HandleFromHref(href)
			}
		}
		if x.valid(candidate, title) {
			return candidate
		}
	}
	return ""
}

func (x extractor) valid(candidate, title string) bool {
	if candidate == "" || len([]rune(candidate)) >= maxChannelLen {
		return false
	}
	if candidate == shortsLabel || candidate == title {
		return false
	}
	if title != "" && strings.Contains(candidate, title) {
		return false
	}
	for _, s := range x.deny.Substrings {
		if strings.Contains(candidate, s) {
			return false
		}
	}
	lower := strings.ToLower(candidate)
	for _, w := range x.deny.Words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return false
		}
	}
	return true
}

// HandleFromHref derives a readable channel name from a link.
// "/@name" gives "@name", "/c/name" gives "name"; channel ids are not readable and give "".
func HandleFromHref(href string) string {
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}
	switch {
	case strings.Contains(path, "/@"):
		name, _, _ := strings.Cut(strings.SplitN(path, "/@", 2)[1], "/")
		if name == "" {
			return ""
		}
		return "@" + name
	case strings.Contains(path, "/channel/"):
		return ""
	case strings.Contains(path, "/c/"):
		name, _, _ := strings.Cut(strings.SplitN(path, "/c/", 2)[1], "/")
		return name
	}
	return ""
}

func compileAll(patterns []string) []cascadia.Selector {
	out := make([]cascadia.Selector, 0, len(patterns))
	for _, p := range patterns {
		m, err := page.Compile(p)
		if err != nil {
			slog.Debug("videoinfo: pattern skipped", slog.String("pattern", p), slog.Any("error", err))
			continue
		}
		out = append(out, m)
	}
	return out
}
