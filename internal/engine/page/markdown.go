package page

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
)

// maxMarkdownRunes bounds the reader export.
const maxMarkdownRunes = 20000

var nonContent = []string{"script", "style", "noscript", "template", "iframe", "svg", "link", "meta"}

// Markdown exports the visible content of the page.
// Nodes hidden inline (including everything the engine hid) are left out.
func (d *Document) Markdown() (string, error) {
	clone := d.doc.Selection.Clone()
	clone.Find(strings.Join(nonContent, ", ")).Remove()
	clone.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if IsHidden(s) {
			s.Remove()
		}
	})

	body := clone.Find("body")
	if body.Length() == 0 {
		body = clone
	}
	html, err := goquery.OuterHtml(body)
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return engine.TruncateRunes(engine.CollapseSpace(engine.CleanHTML(html)), maxMarkdownRunes, "..."), nil
	}
	return engine.TruncateRunes(strings.TrimSpace(md), maxMarkdownRunes, "..."), nil
}
