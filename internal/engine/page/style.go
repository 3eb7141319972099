package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// HasMarker reports whether the first node of s carries attr.
func HasMarker(s *goquery.Selection, attr string) bool {
	_, ok := s.Attr(attr)
	return ok
}

// SetMarker tags every node of s with attr.
func SetMarker(s *goquery.Selection, attr string) {
	s.SetAttr(attr, "true")
}

// ClearMarker removes attr from every node of s.
func ClearMarker(s *goquery.Selection, attr string) {
	s.RemoveAttr(attr)
}

// Attributes that remember a node's inline style while it is hidden.
const (
	hiddenAttr     = "data-ytfocus-hidden"
	savedStyleAttr = "data-ytfocus-style"
)

// Hide forces display:none on every node of s, keeping other inline declarations.
// The first Hide of a node saves its raw style attribute for Unhide.
func Hide(s *goquery.Selection) {
	s.Each(func(_ int, n *goquery.Selection) {
		if !HasMarker(n, hiddenAttr) {
			if style, ok := n.Attr("style"); ok {
				n.SetAttr(savedStyleAttr, style)
			}
			n.SetAttr(hiddenAttr, "true")
		}
		setDisplay(n, "none")
	})
}

// Unhide puts back the style attribute a node had before Hide, byte for byte.
// Nodes not hidden through Hide only lose their inline display declaration.
func Unhide(s *goquery.Selection) {
	s.Each(func(_ int, n *goquery.Selection) {
		if !HasMarker(n, hiddenAttr) {
			setDisplay(n, "")
			return
		}
		if style, ok := n.Attr(savedStyleAttr); ok {
			n.SetAttr("style", style)
		} else {
			n.RemoveAttr("style")
		}
		n.RemoveAttr(savedStyleAttr)
		n.RemoveAttr(hiddenAttr)
	})
}

// IsHidden reports whether the first node of s has an inline display:none.
func IsHidden(s *goquery.Selection) bool {
	for _, d := range declarations(s) {
		if d.Property == "display" {
			return strings.EqualFold(strings.TrimSpace(d.Value), "none")
		}
	}
	return false
}

func declarations(s *goquery.Selection) []*css.Declaration {
	inline := strings.TrimSpace(s.AttrOr("style", ""))
	if inline == "" {
		return nil
	}
	// the parser drops the value of an unterminated last declaration
	if !strings.HasSuffix(inline, ";") {
		inline += ";"
	}
	decls, err := parser.ParseDeclarations(inline)
	if err != nil {
		return nil
	}
	out := decls[:0]
	for _, d := range decls {
		if d == nil {
			continue
		}
		d.Property = strings.ToLower(strings.TrimSpace(d.Property))
		out = append(out, d)
	}
	return out
}

// setDisplay rewrites the display declaration of a single node. An empty value removes it;
// a style attribute left with no declarations is removed entirely.
func setDisplay(n *goquery.Selection, value string) {
	decls := declarations(n)
	kept := make([]*css.Declaration, 0, len(decls)+1)
	for _, d := range decls {
		if d.Property != "display" {
			kept = append(kept, d)
		}
	}
	if value != "" {
		kept = append(kept, &css.Declaration{Property: "display", Value: value})
	}
	if len(kept) == 0 {
		n.RemoveAttr("style")
		return
	}
	parts := make([]string, 0, len(kept))
	for _, d := range kept {
		p := d.Property + ": " + d.Value
		if d.Important {
			p += " !important"
		}
		parts = append(parts, p)
	}
	n.SetAttr("style", strings.Join(parts, "; "))
}
