package translate

import (
	"context"
	"fmt"
)

// MessageTranslateText is the only message type the relay answers.
const MessageTranslateText = "TRANSLATE_TEXT"

// Message is a request from the page side.
type Message struct {
	Type string `json:"type" jsonschema:"message type, TRANSLATE_TEXT"`
	Text string `json:"text" jsonschema:"text to translate"`
}

// Response is the relay's answer. Exactly one of Data and Error is set.
type Response struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Relay answers a page message through the gateway. Failures become a
// response carrying the underlying message, never an error.
func Relay(ctx context.Context, gw *Gateway, msg Message) Response {
	if msg.Type != MessageTranslateText {
		return Response{Error: fmt.Sprintf("unsupported message type %q", msg.Type)}
	}
	r, err := gw.Translate(ctx, msg.Text)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Success: true, Data: &r}
}
