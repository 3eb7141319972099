package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeBaseURL       string // scheme+host for /watch and /youtubei; overridable for tests
	YouTubeClientVersion string // WEB client version sent to the player API
	FetchTimeout         time.Duration
	SettingsDBPath       string // sqlite file; empty = in-memory settings
	SelectorCatalogPath  string // optional YAML override of the built-in catalog
	TranslateProvider    string // "mymemory" or "llm"
	TranslateAPIURL      string
	TranslateLangPair    string
	TranslateInterval    time.Duration // minimum gap between translation requests
	TranslateCacheSize   int
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	ChromeRender         bool // enable chromedp page snapshots
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = plain HTTPClient for page fetches
	LLMClient            *llm.Client    // nil = llm translation provider unavailable
}

// Defaults used when a Config field is left zero.
const (
	DefaultYouTubeBaseURL       = "https://www.youtube.com"
	DefaultYouTubeClientVersion = "2.20240101.00.00"
	DefaultTranslateAPIURL      = "https://api.mymemory.translated.net/get"
	DefaultTranslateLangPair    = "en|ur"
)

var cfg = Config{
	YouTubeBaseURL:       DefaultYouTubeBaseURL,
	YouTubeClientVersion: DefaultYouTubeClientVersion,
	FetchTimeout:         10 * time.Second,
	TranslateProvider:    "mymemory",
	TranslateAPIURL:      DefaultTranslateAPIURL,
	TranslateLangPair:    DefaultTranslateLangPair,
	TranslateInterval:    time.Second,
	TranslateCacheSize:   50,
	HTTPClient:           http.DefaultClient,
}

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero-valued fields fall back to the package defaults.
func Init(c Config) {
	if c.YouTubeBaseURL == "" {
		c.YouTubeBaseURL = DefaultYouTubeBaseURL
	}
	if c.YouTubeClientVersion == "" {
		c.YouTubeClientVersion = DefaultYouTubeClientVersion
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.TranslateProvider == "" {
		c.TranslateProvider = "mymemory"
	}
	if c.TranslateAPIURL == "" {
		c.TranslateAPIURL = DefaultTranslateAPIURL
	}
	if c.TranslateLangPair == "" {
		c.TranslateLangPair = DefaultTranslateLangPair
	}
	if c.TranslateInterval <= 0 {
		c.TranslateInterval = time.Second
	}
	if c.TranslateCacheSize <= 0 {
		c.TranslateCacheSize = 50
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	cfg = c
	Cfg = &cfg
}
