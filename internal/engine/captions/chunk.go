package captions

import (
	"math"
	"regexp"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
)

const (
	// ChunkSize is the width of a display bucket in seconds.
	ChunkSize = 25
	// LastLineDuration is given to the final line, which has no successor.
	LastLineDuration = 2
)

// Line is a cleaned caption line. Duration may be zero or negative when the
// source timings overlap; consumers treat that as instantaneous.
type Line struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Chunk groups the lines whose start falls in one ChunkSize bucket.
type Chunk struct {
	Start float64 `json:"start"`
	Lines []Line  `json:"lines"`
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[music\]`),
	regexp.MustCompile(`(?i)\[applause\]`),
	regexp.MustCompile(`(?i)\[laughter\]`),
	regexp.MustCompile(`\[.*?\]`),
	regexp.MustCompile(`>>+`),
}

// Clean decodes HTML entities, strips stage directions and speaker markers,
// and collapses whitespace.
func Clean(text string) string {
	text = html.UnescapeString(text)
	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	return engine.CollapseSpace(text)
}

// BucketStart returns the chunk start for a line starting at t.
func BucketStart(t float64) float64 {
	return math.Floor(t/ChunkSize) * ChunkSize
}

// ChunkEntries cleans entries and groups them into chunks. A line's duration is
// the distance to the next raw entry; entries that clean to nothing are dropped
// but still bound the previous line's duration.
func ChunkEntries(entries []Entry) []Chunk {
	var (
		out     []Chunk
		current *Chunk
	)
	for i, e := range entries {
		text := Clean(e.Text)
		if text == "" {
			continue
		}
		duration := float64(LastLineDuration)
		if i < len(entries)-1 {
			duration = entries[i+1].Start - e.Start
		}
		line := Line{Text: text, Start: e.Start, Duration: duration}

		bucket := BucketStart(e.Start)
		if current == nil || current.Start != bucket {
			if current != nil {
				out = append(out, *current)
			}
			current = &Chunk{Start: bucket}
		}
		current.Lines = append(current.Lines, line)
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// Lines flattens chunks in order.
func Lines(chunks []Chunk) []Line {
	var out []Line
	for _, c := range chunks {
		out = append(out, c.Lines...)
	}
	return out
}
