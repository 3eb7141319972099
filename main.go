// go_ytfocus: YouTube distraction filter and transcript MCP server.
//
// Exposes five MCP tools: page_clean, video_transcript, translate_text,
// settings_get, settings_set.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/gatekeep"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
	"github.com/anatolykoptev/go_ytfocus/internal/focusserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	mcpPort := env.Str("MCP_PORT", "8893")

	initEngine()

	deps, closeDeps := initDeps()
	defer closeDeps()

	slog.Info("starting go_ytfocus",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_ytfocus",
		Version: version,
	}, nil)

	focusserver.RegisterTools(server, deps)
	slog.Info("tools registered", slog.Int("count", focusserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_ytfocus",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		YouTubeBaseURL:       env.Str("YOUTUBE_BASE_URL", engine.DefaultYouTubeBaseURL),
		YouTubeClientVersion: env.Str("YOUTUBE_CLIENT_VERSION", engine.DefaultYouTubeClientVersion),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		SettingsDBPath:       env.Str("SETTINGS_DB", ""),
		SelectorCatalogPath:  env.Str("SELECTOR_CATALOG", ""),
		TranslateProvider:    env.Str("TRANSLATE_PROVIDER", "mymemory"),
		TranslateAPIURL:      env.Str("TRANSLATE_API_URL", engine.DefaultTranslateAPIURL),
		TranslateLangPair:    env.Str("TRANSLATE_LANGPAIR", engine.DefaultTranslateLangPair),
		TranslateInterval:    env.Duration("TRANSLATE_INTERVAL", time.Second),
		TranslateCacheSize:   env.Int("TRANSLATE_CACHE_SIZE", 50),
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 1024),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 500),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		ChromeRender:         env.Str("CHROME_RENDER", "") == "1",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// initDeps builds the long-lived tool dependencies. The returned func
// releases the settings store.
func initDeps() (focusserver.Deps, func()) {
	ctx := context.Background()

	cat := selectors.Default()
	if path := engine.Cfg.SelectorCatalogPath; path != "" {
		loaded, err := selectors.Load(path)
		if err != nil {
			slog.Warn("selector catalog load failed, using built-in", slog.String("path", path), slog.Any("error", err))
		} else {
			cat = loaded
			slog.Info("selector catalog loaded", slog.String("path", path), slog.String("version", cat.Version))
		}
	}

	var store settings.Store = settings.NewMemoryStore()
	closeStore := func() {}
	if path := engine.Cfg.SettingsDBPath; path != "" {
		db, err := settings.OpenSQLite(path)
		if err != nil {
			slog.Warn("settings DB init failed, using in-memory settings", slog.Any("error", err))
		} else {
			store = db
			closeStore = func() {
				if err := db.Close(); err != nil {
					slog.Warn("settings DB close failed", slog.Any("error", err))
				}
			}
			slog.Info("settings DB initialized", slog.String("path", path))
		}
	}
	ctrl := settings.NewController(ctx, store)

	deps := focusserver.Deps{
		GateKeeper: gatekeep.New(cat),
		Settings:   ctrl,
		Captions:   captions.NewPipeline(),
		Gateway:    translate.NewGateway(translate.NewService(), engine.Cfg.TranslateInterval, engine.Cfg.TranslateCacheSize),
	}
	if engine.Cfg.ChromeRender {
		deps.Renderer = page.NewRenderer(30 * time.Second)
		slog.Info("headless renderer enabled")
	}
	return deps, func() {
		ctrl.Close()
		closeStore()
	}
}
