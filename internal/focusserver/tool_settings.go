package focusserver

import (
	"context"
	"errors"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
)

// SettingsGetInput is the input for settings_get.
type SettingsGetInput struct{}

// SettingsSetInput is the input for settings_set.
type SettingsSetInput struct {
	Values map[string]bool `json:"values" jsonschema:"Flags to change: removeShorts, removeShortsButton, removeHomepageVideos, removeWatchPageSuggestions, showTranscript"`
}

// SettingsOutput is the output of settings_get and settings_set.
type SettingsOutput struct {
	Settings settings.Settings `json:"settings"`
	Changed  []settings.Key    `json:"changed,omitempty"`
	Ignored  []string          `json:"ignored,omitempty"`
}

func registerSettingsGet(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "settings_get",
		Description: "Show the current feature flags used by page_clean.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ SettingsGetInput) (*mcp.CallToolResult, *SettingsOutput, error) {
		return nil, &SettingsOutput{Settings: d.Settings.Current()}, nil
	})
}

func registerSettingsSet(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "settings_set",
		Description: "Change one or more feature flags. Persisted when SETTINGS_DB is set. Unknown keys are ignored and listed in the response.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SettingsSetInput) (*mcp.CallToolResult, *SettingsOutput, error) {
		return setSettings(ctx, d, input)
	})
}

func setSettings(ctx context.Context, d Deps, input SettingsSetInput) (*mcp.CallToolResult, *SettingsOutput, error) {
	if len(input.Values) == 0 {
		return nil, nil, errors.New("values is required")
	}
	changes := settings.FromMap(input.Values)
	var ignored []string
	for k := range input.Values {
		if !settings.Known(settings.Key(k)) {
			ignored = append(ignored, k)
		}
	}
	sort.Strings(ignored)

	before := d.Settings.Current()
	if err := d.Settings.Update(ctx, changes); err != nil {
		return nil, nil, err
	}
	return nil, &SettingsOutput{
		Settings: d.Settings.Current(),
		Changed:  before.Diff(changes).Keys(),
		Ignored:  ignored,
	}, nil
}
