package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }

// FetchBody performs a GET with browser-like headers and returns the body and status.
// Uses Cfg.BrowserClient when configured, otherwise Cfg.HTTPClient. No retries:
// callers treat a failed fetch as a skipped attempt.
func FetchBody(ctx context.Context, rawURL string, limit int64) ([]byte, int, error) {
	if bc := cfg.BrowserClient; bc != nil {
		body, status, err := bc.Do(http.MethodGet, rawURL, ChromeHeaders(), nil)
		if err != nil {
			return nil, status, fmt.Errorf("browser fetch: %w", err)
		}
		if limit > 0 && int64(len(body)) > limit {
			body = body[:limit]
		}
		return body, status, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
