package focusserver

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/transcript"
)

// VideoTranscriptInput is the input for video_transcript.
type VideoTranscriptInput struct {
	VideoID string `json:"video_id,omitempty" jsonschema:"YouTube video id (e.g. dQw4w9WgXcQ). Either video_id or url is required"`
	URL     string `json:"url,omitempty" jsonschema:"Watch page URL"`
}

// VideoTranscriptOutput is the output of video_transcript.
type VideoTranscriptOutput struct {
	VideoID  string           `json:"video_id"`
	Language string           `json:"language,omitempty"`
	Chunks   []captions.Chunk `json:"chunks"`
	Text     string           `json:"text"`
	Status   string           `json:"status"`
}

func registerVideoTranscript(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Fetch a YouTube video's captions, cleaned of stage directions, grouped into 25-second chunks with per-line timing. Also returns the copy-ready text ([MM:SS] lines per chunk). Videos without captions return status 'unavailable' rather than an error.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input VideoTranscriptInput) (*mcp.CallToolResult, *VideoTranscriptOutput, error) {
		return videoTranscript(ctx, d, input)
	})
}

func videoTranscript(ctx context.Context, d Deps, input VideoTranscriptInput) (*mcp.CallToolResult, *VideoTranscriptOutput, error) {
	rawURL := strings.TrimSpace(input.URL)
	if id := strings.TrimSpace(input.VideoID); id != "" {
		rawURL = strings.TrimRight(engine.Cfg.YouTubeBaseURL, "/") + "/watch?v=" + url.QueryEscape(id)
	}
	if rawURL == "" {
		return nil, nil, errors.New("video_id or url is required")
	}
	src, err := captions.FromURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	pipeline := d.Captions
	if pipeline == nil {
		pipeline = captions.NewPipeline()
	}
	var res *captions.Result
	err = engine.TrackOperation(ctx, "video_transcript", func(ctx context.Context) error {
		var rerr error
		res, rerr = pipeline.Cached(ctx, src)
		return rerr
	})
	if err != nil {
		if captions.IsExpectedAbsence(err) {
			return nil, &VideoTranscriptOutput{VideoID: res.VideoID, Chunks: []captions.Chunk{}, Status: "unavailable"}, nil
		}
		return nil, nil, err
	}

	out := &VideoTranscriptOutput{
		VideoID: res.VideoID,
		Chunks:  res.Chunks,
		Text:    transcript.New(res.VideoID, res.Chunks).CopyText(),
		Status:  "ok",
	}
	if res.Track != nil {
		out.Language = res.Track.LanguageCode
	}
	return nil, out, nil
}
