// Package selectors holds the pattern lists used to recognise page sections.
// Pure data: no document access happens here.
package selectors

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Concern names one category of page nodes that can be hidden and restored independently.
type Concern string

const (
	ShortShelf          Concern = "shorts"
	ShortsNavButton     Concern = "shorts_button"
	WatchSuggestion     Concern = "suggestions"
	HomepageItem        Concern = "homepage_videos"
	EndScreenSuggestion Concern = "end_suggestions"
)

// Concerns lists every concern in a stable order.
var Concerns = []Concern{ShortShelf, ShortsNavButton, WatchSuggestion, HomepageItem, EndScreenSuggestion}

var markers = map[Concern]string{
	ShortShelf:          "data-shorts-removed",
	ShortsNavButton:     "data-shorts-button-removed",
	WatchSuggestion:     "data-suggestions-removed",
	HomepageItem:        "data-homepage-videos-removed",
	EndScreenSuggestion: "data-end-suggestions-removed",
}

// Marker returns the attribute recording that a node was hidden for c.
func (c Concern) Marker() string {
	if m, ok := markers[c]; ok {
		return m
	}
	return "data-" + string(c) + "-removed"
}

// Denylist rejects channel candidates that look like titles or metadata.
type Denylist struct {
	Substrings []string `yaml:"substrings"` // case-sensitive
	Words      []string `yaml:"words"`      // matched case-insensitively
}

// Catalog groups every pattern list by purpose.
type Catalog struct {
	Version             string               `yaml:"version"`
	Concerns            map[Concern][]string `yaml:"concerns"`
	ItemContainers      []string             `yaml:"item_containers"`
	TitlePatterns       []string             `yaml:"title_patterns"`
	ChannelPatterns     []string             `yaml:"channel_patterns"`
	PlaylistPanel       []string             `yaml:"playlist_panel"`
	ShortsNavContainers []string             `yaml:"shorts_nav_containers"`
	Denylist            Denylist             `yaml:"denylist"`
}

// Patterns returns the patterns for c in match-priority order.
func (c Catalog) Patterns(concern Concern) []string {
	return c.Concerns[concern]
}

// Default returns a fresh copy of the built-in catalog.
func Default() Catalog {
	cat := Catalog{
		Version:             builtin.Version,
		Concerns:            make(map[Concern][]string, len(builtin.Concerns)),
		ItemContainers:      slices.Clone(builtin.ItemContainers),
		TitlePatterns:       slices.Clone(builtin.TitlePatterns),
		ChannelPatterns:     slices.Clone(builtin.ChannelPatterns),
		PlaylistPanel:       slices.Clone(builtin.PlaylistPanel),
		ShortsNavContainers: slices.Clone(builtin.ShortsNavContainers),
		Denylist: Denylist{
			Substrings: slices.Clone(builtin.Denylist.Substrings),
			Words:      slices.Clone(builtin.Denylist.Words),
		},
	}
	for k, v := range builtin.Concerns {
		cat.Concerns[k] = slices.Clone(v)
	}
	return cat
}

// Load reads a YAML catalog and overlays it on the defaults.
// A non-empty list in the file replaces the default list for that key.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML catalog data on the defaults.
func Parse(data []byte) (Catalog, error) {
	var over Catalog
	if err := yaml.Unmarshal(data, &over); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	cat := Default()
	if over.Version != "" {
		cat.Version = over.Version
	}
	for k, v := range over.Concerns {
		if len(v) > 0 {
			cat.Concerns[k] = v
		}
	}
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&cat.ItemContainers, over.ItemContainers)
	replace(&cat.TitlePatterns, over.TitlePatterns)
	replace(&cat.ChannelPatterns, over.ChannelPatterns)
	replace(&cat.PlaylistPanel, over.PlaylistPanel)
	replace(&cat.ShortsNavContainers, over.ShortsNavContainers)
	replace(&cat.Denylist.Substrings, over.Denylist.Substrings)
	replace(&cat.Denylist.Words, over.Denylist.Words)
	return cat, nil
}
