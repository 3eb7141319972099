// Package focusserver exposes the page-focus engine as MCP tools:
// page_clean, video_transcript, translate_text, settings_get, settings_set.
package focusserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/gatekeep"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
)

// Deps are the long-lived engine parts shared by every tool call.
type Deps struct {
	GateKeeper *gatekeep.GateKeeper
	Settings   *settings.Controller
	Captions   *captions.Pipeline
	Gateway    *translate.Gateway
	// Renderer is nil when headless snapshots are disabled.
	Renderer *page.Renderer
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 5

// RegisterTools registers every tool on server.
func RegisterTools(server *mcp.Server, d Deps) {
	registerPageClean(server, d)
	registerVideoTranscript(server, d)
	registerTranslateText(server, d)
	registerSettingsGet(server, d)
	registerSettingsSet(server, d)
}
