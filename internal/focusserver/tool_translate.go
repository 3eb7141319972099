package focusserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
)

func registerTranslateText(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "translate_text",
		Description: "Translate a short transcript selection (English to Urdu by default). Message type must be TRANSLATE_TEXT. Results are cached by exact text; lookups are spaced at least one second apart and a lookup arriving while another is running is rejected. Returns {success, data: {urduTranslation, bestWord, vocabulary, context}} or {success: false, error}.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input translate.Message) (*mcp.CallToolResult, *translate.Response, error) {
		if input.Type == "" {
			input.Type = translate.MessageTranslateText
		}
		resp := translate.Relay(ctx, d.Gateway, input)
		return nil, &resp, nil
	})
}
