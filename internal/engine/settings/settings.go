// Package settings holds the feature flags, their stores and the controller
// that fans changes out to the engine.
package settings

import "sort"

// Key names one flag. Keys are the persisted field names.
type Key string

const (
	RemoveShorts               Key = "removeShorts"
	RemoveShortsButton         Key = "removeShortsButton"
	RemoveHomepageVideos       Key = "removeHomepageVideos"
	RemoveWatchPageSuggestions Key = "removeWatchPageSuggestions"
	ShowTranscript             Key = "showTranscript"
)

// Keys lists every known flag.
var Keys = []Key{
	RemoveShorts,
	RemoveShortsButton,
	RemoveHomepageVideos,
	RemoveWatchPageSuggestions,
	ShowTranscript,
}

// Known reports whether k is a flag name.
func Known(k Key) bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

// Settings is an immutable snapshot of the flags.
type Settings struct {
	RemoveShorts               bool `json:"removeShorts"`
	RemoveShortsButton         bool `json:"removeShortsButton"`
	RemoveHomepageVideos       bool `json:"removeHomepageVideos"`
	RemoveWatchPageSuggestions bool `json:"removeWatchPageSuggestions"`
	ShowTranscript             bool `json:"showTranscript"`
}

// Defaults enables every removal and leaves the transcript off.
func Defaults() Settings {
	return Settings{
		RemoveShorts:               true,
		RemoveShortsButton:         true,
		RemoveHomepageVideos:       true,
		RemoveWatchPageSuggestions: true,
		ShowTranscript:             false,
	}
}

// Changes is a partial update. Only known keys take effect.
type Changes map[Key]bool

// FromMap keeps the known keys of m.
func FromMap(m map[string]bool) Changes {
	out := Changes{}
	for k, v := range m {
		if Known(Key(k)) {
			out[Key(k)] = v
		}
	}
	return out
}

// Keys returns the changed keys in sorted order.
func (c Changes) Keys() []Key {
	out := make([]Key, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the value of k and whether k is known.
func (s Settings) Get(k Key) (bool, bool) {
	switch k {
	case RemoveShorts:
		return s.RemoveShorts, true
	case RemoveShortsButton:
		return s.RemoveShortsButton, true
	case RemoveHomepageVideos:
		return s.RemoveHomepageVideos, true
	case RemoveWatchPageSuggestions:
		return s.RemoveWatchPageSuggestions, true
	case ShowTranscript:
		return s.ShowTranscript, true
	}
	return false, false
}

// Apply returns a copy of s with changes applied; unknown keys are ignored.
func (s Settings) Apply(changes Changes) Settings {
	for k, v := range changes {
		switch k {
		case RemoveShorts:
			s.RemoveShorts = v
		case RemoveShortsButton:
			s.RemoveShortsButton = v
		case RemoveHomepageVideos:
			s.RemoveHomepageVideos = v
		case RemoveWatchPageSuggestions:
			s.RemoveWatchPageSuggestions = v
		case ShowTranscript:
			s.ShowTranscript = v
		}
	}
	return s
}

// Diff returns the subset of changes that would alter s.
func (s Settings) Diff(changes Changes) Changes {
	out := Changes{}
	for k, v := range changes {
		if cur, ok := s.Get(k); ok && cur != v {
			out[k] = v
		}
	}
	return out
}

// Map returns every flag keyed by name.
func (s Settings) Map() map[Key]bool {
	out := make(map[Key]bool, len(Keys))
	for _, k := range Keys {
		out[k], _ = s.Get(k)
	}
	return out
}
