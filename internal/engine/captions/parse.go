package captions

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Entry is one raw caption node: text as found (entities and noise included) and its start in seconds.
type Entry struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
}

// ParseXML reads timedtext XML. A syntax error or a document without
// <text> nodes yields an empty list, never an error.
func ParseXML(data []byte) []Entry {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		out     []Entry
		inText  int // nesting depth inside a <text> element
		current strings.Builder
		start   float64
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Debug("captions: xml syntax error", slog.Any("error", err))
			return nil
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if inText > 0 {
				inText++
				continue
			}
			if t.Name.Local == "text" {
				inText = 1
				current.Reset()
				start = attrFloat(t.Attr, "start")
			}
		case xml.CharData:
			if inText > 0 {
				current.Write(t)
			}
		case xml.EndElement:
			if inText == 0 {
				continue
			}
			inText--
			if inText == 0 {
				text := current.String()
				if strings.TrimSpace(text) != "" {
					out = append(out, Entry{Text: text, Start: start})
				}
			}
		}
	}
	if inText > 0 {
		return nil
	}
	return out
}

func attrFloat(attrs []xml.Attr, name string) float64 {
	for _, a := range attrs {
		if a.Name.Local == name {
			v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}
