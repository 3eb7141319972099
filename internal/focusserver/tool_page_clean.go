package focusserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/orchestrator"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
)

// PageCleanInput is the input for page_clean.
type PageCleanInput struct {
	HTML     string          `json:"html,omitempty" jsonschema:"Raw page HTML to clean. Either html or url is required"`
	URL      string          `json:"url,omitempty" jsonschema:"Page address. Fetched when html is empty, otherwise used as the page location"`
	Render   bool            `json:"render,omitempty" jsonschema:"Load the url in headless Chrome instead of a plain fetch (needs CHROME_RENDER=1)"`
	Format   string          `json:"format,omitempty" jsonschema:"Output format: html (default) or markdown"`
	Settings map[string]bool `json:"settings,omitempty" jsonschema:"Per-call flag overrides: removeShorts, removeShortsButton, removeHomepageVideos, removeWatchPageSuggestions, showTranscript"`
}

// PageCleanOutput is the output of page_clean.
type PageCleanOutput struct {
	PageClass    string                    `json:"page_class"`
	Hidden       map[selectors.Concern]int `json:"hidden"`
	Transcript   string                    `json:"transcript_video_id,omitempty"`
	Format       string                    `json:"format"`
	Content      string                    `json:"content"`
	FlagsApplied settings.Settings         `json:"flags_applied"`
}

func registerPageClean(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "page_clean",
		Description: "Clean a YouTube page: hide Shorts shelves, the Shorts navigation button, homepage recommendations and watch-page suggestions according to the current settings, and optionally insert the time-synced transcript panel. Accepts raw HTML or a URL. Returns per-concern hidden counts and the cleaned page as HTML or Markdown.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input PageCleanInput) (*mcp.CallToolResult, *PageCleanOutput, error) {
		return cleanPage(ctx, d, input)
	})
}

func cleanPage(ctx context.Context, d Deps, input PageCleanInput) (*mcp.CallToolResult, *PageCleanOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "markdown" {
		return nil, nil, fmt.Errorf("invalid format %q (valid: html, markdown)", input.Format)
	}

	doc, err := loadDocument(ctx, d, input)
	if err != nil {
		return nil, nil, err
	}

	flags := d.Settings.Current().Apply(settings.FromMap(input.Settings))
	store := settings.NewMemoryStore()
	if err := store.Set(ctx, flags.Map()); err != nil {
		return nil, nil, err
	}
	ctrl := settings.NewController(ctx, store)
	defer ctrl.Close()

	var opts orchestrator.Options
	if d.Captions != nil {
		opts.Captions = d.Captions
	}
	o := orchestrator.New(ctx, doc, d.GateKeeper, ctrl, opts)
	rep := o.ApplyAll()
	o.Close()

	out := &PageCleanOutput{
		PageClass:    rep.Class.String(),
		Hidden:       rep.Hidden,
		Format:       format,
		FlagsApplied: flags,
	}
	if p := o.Presenter(); p != nil {
		out.Transcript = p.VideoID()
	}
	err = o.View(func(doc *page.Document) error {
		var rerr error
		if format == "markdown" {
			out.Content, rerr = doc.Markdown()
		} else {
			out.Content, rerr = doc.HTML()
		}
		return rerr
	})
	if err != nil {
		return nil, nil, fmt.Errorf("serialize page: %w", err)
	}
	return nil, out, nil
}

func loadDocument(ctx context.Context, d Deps, input PageCleanInput) (*page.Document, error) {
	switch {
	case input.HTML != "":
		loc := input.URL
		if loc == "" {
			loc = engine.Cfg.YouTubeBaseURL + "/"
		}
		return page.ParseString(input.HTML, loc)
	case input.URL == "":
		return nil, errors.New("html or url is required")
	case input.Render:
		if d.Renderer == nil {
			return nil, errors.New("headless rendering is disabled (set CHROME_RENDER=1)")
		}
		return d.Renderer.Snapshot(ctx, input.URL)
	default:
		return page.Fetch(ctx, input.URL)
	}
}
