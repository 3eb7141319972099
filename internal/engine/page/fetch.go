package page

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/chromedp/chromedp"
)

// maxPageBytes caps a fetched page; watch pages run to a few megabytes.
const maxPageBytes = 6 * 1024 * 1024

// Fetch downloads rawURL with browser-like headers and parses it.
func Fetch(ctx context.Context, rawURL string) (*Document, error) {
	engine.IncrPageFetches()
	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	body, status, err := engine.FetchBody(ctx, rawURL, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch page: HTTP %d", status)
	}
	return Parse(bytes.NewReader(body), rawURL)
}

// Renderer takes snapshots of pages through a headless Chrome so that
// script-built sections and in-page globals are present.
type Renderer struct {
	opts    []chromedp.ExecAllocatorOption
	timeout time.Duration
}

// NewRenderer returns a Renderer with headless defaults.
func NewRenderer(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.UserAgent(engine.RandomUserAgent()),
	)
	return &Renderer{opts: opts, timeout: timeout}
}

// Snapshot loads rawURL, waits for the body, and returns the rendered tree.
func (r *Renderer) Snapshot(ctx context.Context, rawURL string) (*Document, error) {
	engine.IncrPageRenders()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()
	taskCtx, cancel := context.WithTimeout(taskCtx, r.timeout)
	defer cancel()

	var (
		finalURL    string
		htmlContent string
		player      string
	)
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
		chromedp.Evaluate(`JSON.stringify(window.ytInitialPlayerResponse || null)`, &player),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}
	if finalURL == "" {
		finalURL = rawURL
	}

	doc, err := Parse(strings.NewReader(htmlContent), finalURL)
	if err != nil {
		return nil, err
	}
	if player != "" && player != "null" && json.Valid([]byte(player)) {
		doc.SetPlayerResponse(json.RawMessage(player))
	}
	slog.Debug("page: rendered", slog.String("url", finalURL), slog.Int("bytes", len(htmlContent)))
	return doc, nil
}
