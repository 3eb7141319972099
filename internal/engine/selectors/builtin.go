package selectors

// builtin is the shipped catalog. Several entries alias the same section
// because the host markup changes between layouts and rollouts.
var builtin = Catalog{
	Version: "2024.12",
	Concerns: map[Concern][]string{
		ShortShelf: {
			"ytd-reel-shelf-renderer",
			"ytd-rich-shelf-renderer[is-shorts]",
			`[aria-label*="Shorts"]`,
			"ytd-shells-renderer",
			`#dismissible[class*="shorts"]`,
		},
		ShortsNavButton: {
			`ytd-guide-entry-renderer:has(a[href="/shorts"])`,
			`ytd-mini-guide-entry-renderer:has(a[href="/shorts"])`,
			`ytd-guide-entry-renderer:has([title="Shorts"])`,
			`ytd-mini-guide-entry-renderer:has([title="Shorts"])`,
			`a[href="/shorts"]`,
			`a[title="Shorts"]`,
			`#guide-icon[href*="/shorts"]`,
		},
		WatchSuggestion: {
			"#secondary-inner ytd-compact-video-renderer",
			"#secondary-inner ytd-compact-playlist-renderer",
			"#secondary-inner ytd-reel-shelf-renderer",
			"ytd-watch-next-secondary-results-renderer",
			"#related ytd-video-renderer",
			"#related ytd-compact-video-renderer",
			"#related ytd-reel-shelf-renderer",
			".ytd-watch-next-secondary-results-renderer #items ytd-video-renderer",
			".ytd-watch-next-secondary-results-renderer #items ytd-compact-video-renderer",
			"ytd-continuation-item-renderer:has(#related)",
			`[data-session-link]:not([href*="/shorts/"]) > ytd-thumbnail`,
			"ytd-item-section-renderer:has(ytd-compact-video-renderer)",
		},
		HomepageItem: {
			"ytd-rich-item-renderer",
			"ytd-rich-grid-row",
			"ytd-rich-grid-renderer",
			"ytd-two-column-browse-results-renderer #primary #contents",
			`ytd-browse[page-subtype="home"] ytd-rich-grid-renderer`,
			`ytd-browse[page-subtype="home"] ytd-rich-item-renderer`,
			`ytd-browse[page-subtype="home"] ytd-rich-grid-row`,
			"ytd-grid-video-renderer",
			"ytd-video-renderer",
			"ytd-item-section-renderer",
		},
		EndScreenSuggestion: {
			".ytp-suggestion-set",
			".ytp-videowall-still",
			".ytp-show-tiles",
			"div.ytp-pause-overlay",
			".ytp-scroll-min",
			".ytp-scroll-max",
		},
	},
	ItemContainers: []string{
		"ytd-reel-item-renderer",
		"ytd-rich-item-renderer",
		"ytd-video-renderer",
		"ytd-compact-video-renderer",
		"ytm-shorts-lockup-view-model-v2",
		"ytm-shorts-lockup-view-model",
		".shortsLockupViewModelHost",
		`[class*="reel-item"]`,
		`[class*="rich-item"]`,
		`[class*="shortsLockup"]`,
	},
	TitlePatterns: []string{
		"#video-title",
		"#title yt-formatted-string",
		"h3 a span[title]",
		`yt-formatted-string[slot="title"]`,
		"#video-title-link",
		"a[title]",
		"h3 span[title]",
		`[id="video-title"]`,
		".ytd-rich-grid-media h3",
		".reel-item-title",
		"[aria-label]",
	},
	ChannelPatterns: []string{
		`a[href*="/@"]:not([href*="/shorts/"]):not([href*="/watch"])`,
		`a[href*="/channel/"]:not([href*="/shorts/"]):not([href*="/watch"])`,
		`a[href*="/c/"]:not([href*="/shorts/"]):not([href*="/watch"])`,
		`.shortsLockupViewModelHostMetadataRoundedContainerContent a:not([title]):not([href*="/shorts/"])`,
		`.shortsLockupViewModelHostMetadata a:not([title]):not([href*="/shorts/"])`,
		".ytd-rich-grid-media .details.ytd-rich-grid-media #text a",
		".ytd-rich-grid-media .meta.ytd-rich-grid-media #text a",
		"#meta-contents #channel-name a",
		".ytd-rich-grid-media #byline a",
		".ytd-video-meta-block #text a",
		"ytd-channel-name #container #text-container #text a",
		".ytd-channel-name a",
		"#channel-name a",
		"ytd-channel-name a",
		"ytd-channel-name yt-formatted-string",
		".metadata-line a",
		".byline a",
		"#byline a",
		`[aria-label*="by"] a`,
		`[aria-label*="by "]`,
		".shortsLockupViewModelHostMetadataRoundedContainerContent span:not([title])",
		".shortsLockupViewModelHostMetadata span:not([title])",
		`.shortsLockupViewModelHostMetadataRoundedContainerContent [role="text"]:not([title])`,
		`.shortsLockupViewModelHostMetadata [role="text"]:not([title])`,
		`.shortsLockupViewModelHost [aria-label]:not([aria-label*="views"]):not([aria-label*="ago"]):not([title])`,
	},
	PlaylistPanel: []string{
		"#items.ytd-playlist-panel-renderer",
		"ytd-playlist-panel-video-renderer",
		"ytd-playlist-panel-renderer",
	},
	ShortsNavContainers: []string{
		"ytd-guide-entry-renderer",
		"ytd-mini-guide-entry-renderer",
	},
	Denylist: Denylist{
		Substrings: []string{"http", "Subscribe", "views", "ago", "#", "🤯", "🧊", "🤣", "😲"},
		Words:      []string{"short", "nerf", "economy", "truth", "military", "integrity"},
	},
}
