package focusserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/gatekeep"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
)

const homeHTML = `<html><body>
<ytd-reel-shelf-renderer id="shelf"><ytd-reel-item-renderer><span id="video-title">Clip</span></ytd-reel-item-renderer></ytd-reel-shelf-renderer>
<div id="grid">
<ytd-grid-video-renderer id="v1"><h3>First recommendation</h3></ytd-grid-video-renderer>
<ytd-grid-video-renderer id="v2"><h3>Second recommendation</h3></ytd-grid-video-renderer>
</div>
<h1>Home</h1>
</body></html>`

const watchHTML = `<html><body>
<script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"vid1"},` +
	`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"/timedtext?lang=en","languageCode":"en"}]}}};</script>
<div id="primary"><p>description</p></div>
<div id="secondary"><div id="related">
<ytd-compact-video-renderer id="s1"></ytd-compact-video-renderer>
</div></div>
</body></html>`

const timedtext = `<transcript><text start="0" dur="3">Hello</text><text start="3" dur="2">[Music]world</text><text start="26" dur="2">again</text></transcript>`

type fakeService struct {
	calls int
	err   error
}

func (f *fakeService) Translate(_ context.Context, text string) (translate.Result, error) {
	f.calls++
	if f.err != nil {
		return translate.Result{}, f.err
	}
	return translate.Result{UrduTranslation: "ur:" + text, BestWord: text, Vocabulary: []string{text}}, nil
}

type fixture struct {
	deps Deps
	srv  *httptest.Server
	svc  *fakeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			if r.URL.Query().Get("v") == "vid1" {
				_, _ = io.WriteString(w, watchHTML)
				return
			}
			_, _ = io.WriteString(w, `<html><body>no config here</body></html>`)
		case "/timedtext":
			_, _ = io.WriteString(w, timedtext)
		case "/":
			_, _ = io.WriteString(w, homeHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	engine.Init(engine.Config{YouTubeBaseURL: srv.URL, HTTPClient: srv.Client(), FetchTimeout: 5 * time.Second})

	ctx := context.Background()
	ctrl := settings.NewController(ctx, settings.NewMemoryStore())
	t.Cleanup(ctrl.Close)

	svc := &fakeService{}
	return &fixture{
		srv: srv,
		svc: svc,
		deps: Deps{
			GateKeeper: gatekeep.New(selectors.Default()),
			Settings:   ctrl,
			Captions:   &captions.Pipeline{BaseURL: srv.URL, ClientVersion: "2.20240101.00.00", HTTP: srv.Client()},
			Gateway:    translate.NewGateway(svc, 10*time.Millisecond, 5),
		},
	}
}

func TestRegisterTools(t *testing.T) {
	f := newFixture(t)
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	assert.NotPanics(t, func() { RegisterTools(server, f.deps) })
}

func TestPageCleanFromHTML(t *testing.T) {
	f := newFixture(t)

	_, out, err := cleanPage(context.Background(), f.deps, PageCleanInput{
		HTML: homeHTML,
		URL:  "https://www.youtube.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "home", out.PageClass)
	assert.Equal(t, "html", out.Format)
	assert.Equal(t, 2, out.Hidden[selectors.HomepageItem])
	assert.Equal(t, 1, out.Hidden[selectors.ShortShelf])
	assert.Contains(t, out.Content, "display: none")
	assert.Empty(t, out.Transcript)
}

func TestPageCleanOverridesDoNotPersist(t *testing.T) {
	f := newFixture(t)

	_, out, err := cleanPage(context.Background(), f.deps, PageCleanInput{
		HTML:     homeHTML,
		URL:      "https://www.youtube.com/",
		Format:   "markdown",
		Settings: map[string]bool{"removeHomepageVideos": false, "bogus": true},
	})
	require.NoError(t, err)
	assert.Zero(t, out.Hidden[selectors.HomepageItem])
	assert.False(t, out.FlagsApplied.RemoveHomepageVideos)
	assert.Contains(t, out.Content, "First recommendation")

	assert.True(t, f.deps.Settings.Current().RemoveHomepageVideos, "shared settings untouched")
}

func TestPageCleanFetchesURL(t *testing.T) {
	f := newFixture(t)

	_, out, err := cleanPage(context.Background(), f.deps, PageCleanInput{URL: f.srv.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Hidden[selectors.HomepageItem])
}

func TestPageCleanWatchPageWithTranscript(t *testing.T) {
	f := newFixture(t)

	_, out, err := cleanPage(context.Background(), f.deps, PageCleanInput{
		URL:      f.srv.URL + "/watch?v=vid1",
		Settings: map[string]bool{"showTranscript": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "watch", out.PageClass)
	assert.Equal(t, 1, out.Hidden[selectors.WatchSuggestion])
	assert.Equal(t, "vid1", out.Transcript)
	assert.Contains(t, out.Content, `id="transcript-container"`)
	assert.Contains(t, out.Content, "Hello")
	assert.NotContains(t, out.Content, "[Music]")
}

func TestPageCleanErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := cleanPage(ctx, f.deps, PageCleanInput{})
	assert.ErrorContains(t, err, "html or url is required")

	_, _, err = cleanPage(ctx, f.deps, PageCleanInput{HTML: homeHTML, Format: "pdf"})
	assert.ErrorContains(t, err, "invalid format")

	_, _, err = cleanPage(ctx, f.deps, PageCleanInput{URL: f.srv.URL + "/", Render: true})
	assert.ErrorContains(t, err, "CHROME_RENDER")

	_, _, err = cleanPage(ctx, f.deps, PageCleanInput{URL: f.srv.URL + "/missing"})
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestVideoTranscript(t *testing.T) {
	f := newFixture(t)

	// The watch page for this id carries no player config.
	_, out, err := videoTranscript(context.Background(), f.deps, VideoTranscriptInput{VideoID: "nothing"})
	require.NoError(t, err)
	assert.Equal(t, "unavailable", out.Status)
	assert.Empty(t, out.Chunks)

	_, _, err = videoTranscript(context.Background(), f.deps, VideoTranscriptInput{})
	assert.ErrorContains(t, err, "video_id or url is required")
}

func TestVideoTranscriptFromPlayerAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			_, _ = io.WriteString(w, `<script>ytcfg.set({"INNERTUBE_API_KEY":"KEY"});</script>`)
		case "/youtubei/v1/player":
			_, _ = io.WriteString(w, `{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
				`{"baseUrl":"/timedtext?lang=en","languageCode":"en"}]}}}`)
		case "/timedtext":
			_, _ = io.WriteString(w, timedtext)
		}
	}))
	defer srv.Close()
	engine.Init(engine.Config{YouTubeBaseURL: srv.URL, HTTPClient: srv.Client()})

	d := Deps{Captions: &captions.Pipeline{BaseURL: srv.URL, ClientVersion: "2.20240101.00.00", HTTP: srv.Client()}}
	_, out, err := videoTranscript(context.Background(), d, VideoTranscriptInput{VideoID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "abc", out.VideoID)
	assert.Equal(t, "en", out.Language)
	require.Len(t, out.Chunks, 2)
	assert.Equal(t, "[00:00] Hello world\n\n[00:25] again", out.Text)
}

func TestTranslateRelay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := translate.Relay(ctx, f.deps.Gateway, translate.Message{Type: translate.MessageTranslateText, Text: "hello"})
	require.True(t, resp.Success)
	assert.Equal(t, "ur:hello", resp.Data.UrduTranslation)

	resp = translate.Relay(ctx, f.deps.Gateway, translate.Message{Type: translate.MessageTranslateText, Text: "hello"})
	require.True(t, resp.Success)
	assert.Equal(t, 1, f.svc.calls, "second lookup is a cache hit")

	f.svc.err = errors.New("Translation API Error (500)")
	resp = translate.Relay(ctx, f.deps.Gateway, translate.Message{Type: translate.MessageTranslateText, Text: "other"})
	assert.False(t, resp.Success)
	assert.Equal(t, "Translation API Error (500)", resp.Error)
}

func TestSetSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, out, err := setSettings(ctx, f.deps, SettingsSetInput{Values: map[string]bool{
		"showTranscript": true,
		"removeShorts":   true,
		"zeta":           true,
		"alpha":          false,
	}})
	require.NoError(t, err)
	assert.True(t, out.Settings.ShowTranscript)
	assert.Equal(t, []settings.Key{settings.ShowTranscript}, out.Changed)
	assert.Equal(t, []string{"alpha", "zeta"}, out.Ignored)
	assert.True(t, f.deps.Settings.Current().ShowTranscript)

	_, _, err = setSettings(ctx, f.deps, SettingsSetInput{})
	assert.ErrorContains(t, err, "values is required")
}

func TestPageCleanUsesSharedSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.deps.Settings.Update(ctx, settings.Changes{settings.RemoveShorts: false}))

	_, out, err := cleanPage(ctx, f.deps, PageCleanInput{HTML: homeHTML})
	require.NoError(t, err)
	assert.Zero(t, out.Hidden[selectors.ShortShelf])
	assert.Equal(t, 2, out.Hidden[selectors.HomepageItem])
}
