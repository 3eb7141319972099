package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
)

const (
	ContainerID    = "transcript-container"
	FixedWrapperID = "transcript-fixed-wrapper"
	ActiveClass    = "active"
	UnavailableMsg = "Transcript unavailable for this video"
)

// hostPatterns is the panel placement fallback chain, tried in order.
var hostPatterns = []string{
	"#secondary",
	"ytd-watch-next-secondary-results-renderer",
	"#secondary-inner",
	"#related",
}

const fixedWrapperStyle = "position: fixed; top: 80px; right: 16px; width: 400px; max-height: 80vh; z-index: 2000"

// lineSelector identifies the elements a transcript selection must fall inside.
var lineSelector = []string{".transcript-line", ".transcript-text"}

// Render inserts or refreshes the transcript panel in doc. An existing
// container is reused and its content replaced.
func (p *Presenter) Render(doc *page.Document) error {
	container, err := ensureContainer(doc)
	if err != nil {
		return err
	}
	container.SetAttr("data-video-id", p.videoID)
	container.SetHtml(p.panelHTML())

	p.mu.Lock()
	p.panel = &panelScroller{container: container}
	p.panel.markActive(p.active)
	p.mu.Unlock()

	engine.IncrPageRenders()
	return nil
}

// RenderUnavailable replaces an existing panel's content with a notice.
// Without a panel there is nothing to show and the page is left as is.
func RenderUnavailable(doc *page.Document) bool {
	container := doc.Root().Find("#" + ContainerID)
	if container.Length() == 0 {
		return false
	}
	container.RemoveAttr("data-video-id")
	container.SetHtml(header() + `<div class="transcript-content"><div class="transcript-unavailable">` +
		UnavailableMsg + `</div></div>`)
	return true
}

// Remove deletes the panel and the fixed wrapper, if present.
func Remove(doc *page.Document) {
	doc.Root().Find("#" + ContainerID).Remove()
	doc.Root().Find("#" + FixedWrapperID).Remove()
}

// InTranscriptLine reports whether sel sits inside a rendered transcript line.
func InTranscriptLine(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	return page.ClosestAny(sel, lineSelector).Length() > 0
}

// RenderedVideoID returns the video id of the panel currently in doc.
func RenderedVideoID(doc *page.Document) string {
	id, _ := doc.Root().Find("#" + ContainerID).Attr("data-video-id")
	return id
}

func ensureContainer(doc *page.Document) (*goquery.Selection, error) {
	root := doc.Root()
	if existing := root.Find("#" + ContainerID); existing.Length() > 0 {
		return existing.First(), nil
	}

	host := placementHost(root)
	if host == nil {
		body := root.Find("body")
		if body.Length() == 0 {
			return nil, fmt.Errorf("transcript: document has no body")
		}
		body.AppendHtml(`<div id="` + FixedWrapperID + `" style="` + fixedWrapperStyle + `"></div>`)
		host = root.Find("#" + FixedWrapperID)
	}
	host.PrependHtml(`<div id="` + ContainerID + `" class="transcript-container"></div>`)
	return host.Find("#" + ContainerID).First(), nil
}

func placementHost(root *goquery.Selection) *goquery.Selection {
	for _, pattern := range hostPatterns {
		if s := root.Find(pattern); s.Length() > 0 {
			return s.First()
		}
	}
	return nil
}

func header() string {
	return `<div class="transcript-header">` +
		`<div class="transcript-title">Video Transcript</div>` +
		`<button class="transcript-copy-button" type="button">Copy Text</button>` +
		`<button class="transcript-sync-button" type="button">Sync</button>` +
		`</div>`
}

func (p *Presenter) panelHTML() string {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString(`<div class="transcript-content">`)
	idx := 0
	for _, c := range p.chunks {
		fmt.Fprintf(&b, `<div class="transcript-chunk" data-start="%s">`, formatSeconds(c.Start))
		fmt.Fprintf(&b, `<div class="transcript-timestamp">%s</div>`, FormatTimestamp(c.Start))
		for _, l := range c.Lines {
			fmt.Fprintf(&b, `<div class="transcript-line" data-index="%d" data-start="%s" data-duration="%s">`,
				idx, formatSeconds(l.Start), formatSeconds(l.Duration))
			b.WriteString(`<span class="transcript-text">`)
			b.WriteString(html.EscapeString(l.Text))
			b.WriteString(`</span></div>`)
			idx++
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func formatSeconds(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// panelScroller is the default Scroller: it records the centred line on the
// rendered panel and keeps the active class on exactly one line.
type panelScroller struct {
	container *goquery.Selection
}

func (s *panelScroller) lines() *goquery.Selection {
	return s.container.Find(".transcript-line")
}

func (s *panelScroller) markActive(idx int) {
	lines := s.lines()
	lines.RemoveClass(ActiveClass)
	if idx >= 0 && idx < lines.Length() {
		lines.Eq(idx).AddClass(ActiveClass)
	}
}

func (s *panelScroller) ScrollTo(idx int, smooth bool) {
	s.container.SetAttr("data-scroll-index", strconv.Itoa(idx))
	if smooth {
		s.container.SetAttr("data-scroll-behavior", "smooth")
	}
}
