// Package captions resolves, fetches, parses and chunks a video's caption track.
//
// Flow: video id (URL → in-page player response → canonical link → URL regex),
// player response (in-page object, else watch page API key + player API),
// track selection, timedtext XML fetch, parse, chunk.
package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
)

// Expected absences: the video simply has nothing to show.
var (
	ErrNoVideoID  = errors.New("no video id")
	ErrNoCaptions = errors.New("no caption tracks")
	ErrNoTrackURL = errors.New("caption track has no url")
	ErrNoAPIKey   = errors.New("api key not found in watch page")
	ErrEmptyTrack = errors.New("caption track has no lines")
)

// IsExpectedAbsence reports whether err is a normal "nothing to display" outcome
// rather than a fault.
func IsExpectedAbsence(err error) bool {
	return errors.Is(err, ErrNoVideoID) || errors.Is(err, ErrNoCaptions) ||
		errors.Is(err, ErrNoTrackURL) || errors.Is(err, ErrNoAPIKey) || errors.Is(err, ErrEmptyTrack)
}

// State is a pipeline stage.
type State int

const (
	Idle State = iota
	ResolvingVideoID
	ResolvingMetadata
	ResolvingTrack
	FetchingXML
	Parsed
	Chunked
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResolvingVideoID:
		return "resolving_video_id"
	case ResolvingMetadata:
		return "resolving_metadata"
	case ResolvingTrack:
		return "resolving_track"
	case FetchingXML:
		return "fetching_xml"
	case Parsed:
		return "parsed"
	case Chunked:
		return "chunked"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of one run.
type Result struct {
	VideoID string  `json:"video_id"`
	Track   *Track  `json:"track,omitempty"`
	Entries []Entry `json:"-"`
	Chunks  []Chunk `json:"chunks"`
	State   State   `json:"-"`
	Trace   []State `json:"-"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

const (
	maxWatchPageBytes = 6 * 1024 * 1024
	maxPlayerBytes    = 3 * 1024 * 1024
	maxXMLBytes       = 2 * 1024 * 1024
)

var apiKeyRe = regexp.MustCompile(`"INNERTUBE_API_KEY":"([^"]+)"`)

// Pipeline fetches captions against one YouTube origin.
type Pipeline struct {
	BaseURL       string
	ClientVersion string
	// HTTP overrides the engine clients for every request when set.
	HTTP *http.Client
}

// NewPipeline returns a Pipeline configured from engine.Cfg.
func NewPipeline() *Pipeline {
	return &Pipeline{
		BaseURL:       engine.Cfg.YouTubeBaseURL,
		ClientVersion: engine.Cfg.YouTubeClientVersion,
	}
}

// Run drives the state machine once. On failure the returned Result is in
// state Failed and err says why; IsExpectedAbsence(err) separates quiet
// outcomes from faults. Nothing is retried.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Result, error) {
	engine.IncrCaptionRuns()
	res := &Result{State: Idle, Trace: []State{Idle}}

	res.enter(ResolvingVideoID)
	id := ResolveVideoID(src)
	if id == "" {
		return p.fail(res, ErrNoVideoID)
	}
	res.VideoID = id

	res.enter(ResolvingMetadata)
	player, err := p.playerResponse(ctx, src, id)
	if err != nil {
		return p.fail(res, err)
	}

	res.enter(ResolvingTrack)
	track, err := PickTrack(player.tracks())
	if err != nil {
		return p.fail(res, err)
	}
	res.Track = &track

	res.enter(FetchingXML)
	body, err := p.fetchXML(ctx, track.BaseURL)
	if err != nil {
		return p.fail(res, err)
	}

	res.enter(Parsed)
	res.Entries = ParseXML(body)
	if len(res.Entries) == 0 {
		return p.fail(res, ErrEmptyTrack)
	}

	res.enter(Chunked)
	res.Chunks = ChunkEntries(res.Entries)
	if len(res.Chunks) == 0 {
		return p.fail(res, ErrEmptyTrack)
	}
	slog.Debug("captions: chunked",
		slog.String("video", id), slog.Int("entries", len(res.Entries)), slog.Int("chunks", len(res.Chunks)))
	return res, nil
}

// Cached runs the pipeline through the engine cache keyed by video id.
// Only non-empty successful results are stored.
func (p *Pipeline) Cached(ctx context.Context, src Source) (*Result, error) {
	id := ResolveVideoID(src)
	if id != "" {
		key := engine.CacheKey("transcript", id)
		if hit, ok := engine.CacheLoadJSON[Result](ctx, key); ok {
			hit.State = Chunked
			return &hit, nil
		}
	}
	res, err := p.Run(ctx, src)
	if err != nil {
		return res, err
	}
	if len(res.Chunks) > 0 {
		engine.CacheStoreJSON(ctx, engine.CacheKey("transcript", res.VideoID), *res)
	}
	return res, nil
}

func (p *Pipeline) fail(res *Result, err error) (*Result, error) {
	from := res.State
	res.enter(Failed)
	if IsExpectedAbsence(err) {
		engine.IncrCaptionAbsent()
		slog.Debug("captions: nothing to show", slog.String("video", res.VideoID),
			slog.String("stage", from.String()), slog.Any("reason", err))
	} else {
		engine.IncrCaptionFailures()
		slog.Warn("captions: attempt failed", slog.String("video", res.VideoID),
			slog.String("stage", from.String()), slog.Any("error", err))
	}
	return res, err
}

// PickTrack selects a track: English language code, then an English or
// auto-generated label, then any track with a URL, then the first track.
func PickTrack(tracks []Track) (Track, error) {
	if len(tracks) == 0 {
		return Track{}, ErrNoCaptions
	}
	rules := []func(Track) bool{
		func(t Track) bool {
			return t.BaseURL != "" && strings.HasPrefix(strings.ToLower(t.LanguageCode), "en")
		},
		func(t Track) bool {
			name := strings.ToLower(t.Name.SimpleText)
			return t.BaseURL != "" && (strings.Contains(name, "english") || strings.Contains(name, "auto-generated"))
		},
		func(t Track) bool { return t.BaseURL != "" },
	}
	for _, rule := range rules {
		for _, t := range tracks {
			if rule(t) {
				return t, nil
			}
		}
	}
	if tracks[0].BaseURL == "" {
		return Track{}, ErrNoTrackURL
	}
	return tracks[0], nil
}

// playerResponse prefers the in-page object when it belongs to id.
func (p *Pipeline) playerResponse(ctx context.Context, src Source, id string) (*playerResponse, error) {
	if raw, ok := src.PlayerResponse(); ok {
		var pr playerResponse
		if err := json.Unmarshal(raw, &pr); err == nil {
			if got := pr.videoID(); got == "" || got == id {
				return &pr, nil
			}
			slog.Debug("captions: in-page player response is for another video",
				slog.String("want", id), slog.String("got", pr.videoID()))
		}
	}

	key, err := p.apiKey(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.fetchPlayer(ctx, id, key)
}

func (p *Pipeline) apiKey(ctx context.Context, id string) (string, error) {
	watchURL := strings.TrimRight(p.BaseURL, "/") + "/watch?v=" + url.QueryEscape(id)
	body, status, err := p.get(ctx, watchURL, maxWatchPageBytes)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("watch page: HTTP %d", status)
	}
	m := apiKeyRe.FindSubmatch(body)
	if m == nil {
		return "", ErrNoAPIKey
	}
	return string(m[1]), nil
}

func (p *Pipeline) fetchPlayer(ctx context.Context, id, key string) (*playerResponse, error) {
	engine.IncrPlayerAPIRequests()
	payload, err := json.Marshal(playerRequest{
		Context: playerContext{Client: playerClient{ClientName: "WEB", ClientVersion: p.clientVersion()}},
		VideoID: id,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(p.BaseURL, "/") + "/youtubei/v1/player?key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", engine.RandomUserAgent())

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("player api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("player api: HTTP %d", resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBytes)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	if pr.Captions == nil && pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
		slog.Debug("captions: player reports", slog.String("status", pr.PlayabilityStatus.Status),
			slog.String("reason", pr.PlayabilityStatus.Reason))
	}
	return &pr, nil
}

func (p *Pipeline) fetchXML(ctx context.Context, trackURL string) ([]byte, error) {
	engine.IncrTimedTextRequests()
	target := trackURL
	if u, err := url.Parse(trackURL); err == nil && !u.IsAbs() {
		if base, berr := url.Parse(p.BaseURL); berr == nil {
			target = base.ResolveReference(u).String()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("timedtext: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxXMLBytes))
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("timedtext: empty body")
	}
	return body, nil
}

// get fetches a page, through the engine's browser-like client unless HTTP is set.
func (p *Pipeline) get(ctx context.Context, rawURL string, limit int64) ([]byte, int, error) {
	if p.HTTP == nil {
		return engine.FetchBody(ctx, rawURL, limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	return body, resp.StatusCode, err
}

func (p *Pipeline) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return engine.Cfg.HTTPClient
}

func (p *Pipeline) clientVersion() string {
	if p.ClientVersion != "" {
		return p.ClientVersion
	}
	return engine.DefaultYouTubeClientVersion
}
