package orchestrator

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/captions"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/gatekeep"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/page"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/selectors"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/settings"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/transcript"
	"github.com/anatolykoptev/go_ytfocus/internal/engine/translate"
)

const homeHTML = `<html><body>
<ytd-reel-shelf-renderer id="shelf"><ytd-reel-item-renderer><span id="video-title">Clip</span></ytd-reel-item-renderer></ytd-reel-shelf-renderer>
<ytd-guide-entry-renderer id="nav"><a href="/shorts" title="Shorts">Shorts</a></ytd-guide-entry-renderer>
<div id="grid">
<ytd-grid-video-renderer id="v1"></ytd-grid-video-renderer>
<ytd-grid-video-renderer id="v2"></ytd-grid-video-renderer>
</div>
</body></html>`

const watchHTML = `<html><body>
<div id="primary"><ytd-grid-video-renderer id="g1"></ytd-grid-video-renderer><p id="desc">description</p></div>
<div id="secondary"><div id="related">
<ytd-compact-video-renderer id="s1"></ytd-compact-video-renderer>
<ytd-compact-video-renderer id="s2"></ytd-compact-video-renderer>
</div></div>
</body></html>`

var sampleChunks = []captions.Chunk{
	{Start: 0, Lines: []captions.Line{{Text: "Hello", Start: 0, Duration: 3}, {Text: "world", Start: 3, Duration: 23}}},
	{Start: 25, Lines: []captions.Line{{Text: "foo", Start: 26, Duration: 2}}},
}

type fakeCaptions struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []string
	fail  map[string]error
}

func (f *fakeCaptions) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gates == nil {
		f.gates = map[string]chan struct{}{}
	}
	if f.gates[id] == nil {
		f.gates[id] = make(chan struct{})
	}
	return f.gates[id]
}

func (f *fakeCaptions) Cached(_ context.Context, src captions.Source) (*captions.Result, error) {
	id := captions.ResolveVideoID(src)
	f.mu.Lock()
	f.calls = append(f.calls, id)
	gated := f.gates != nil && f.gates[id] != nil
	err := f.fail[id]
	f.mu.Unlock()
	if gated {
		<-f.gate(id)
	}
	if err != nil {
		return &captions.Result{VideoID: id, State: captions.Failed}, err
	}
	return &captions.Result{VideoID: id, Chunks: sampleChunks, State: captions.Chunked}, nil
}

func (f *fakeCaptions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTranslator struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (translate.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return translate.Result{UrduTranslation: "ur:" + text}, nil
}

type fixture struct {
	o     *Orchestrator
	ctrl  *settings.Controller
	caps  *fakeCaptions
	trans *fakeTranslator
}

func newFixture(t *testing.T, html, rawURL string, initial settings.Changes, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	doc, err := page.ParseString(html, rawURL)
	require.NoError(t, err)

	store := settings.NewMemoryStore()
	require.NoError(t, store.Set(ctx, initial))
	ctrl := settings.NewController(ctx, store)

	f := &fixture{ctrl: ctrl, caps: &fakeCaptions{}, trans: &fakeTranslator{}}
	if opts.Captions == nil {
		opts.Captions = f.caps
	}
	opts.Translator = f.trans
	f.o = New(ctx, doc, gatekeep.New(selectors.Default()), ctrl, opts)
	t.Cleanup(func() {
		f.o.Close()
		ctrl.Close()
	})
	return f
}

func (f *fixture) hidden(t *testing.T, c selectors.Concern) int {
	t.Helper()
	n := 0
	require.NoError(t, f.o.View(func(doc *page.Document) error {
		n = gatekeep.Marked(doc, c)
		return nil
	}))
	return n
}

func (f *fixture) find(t *testing.T, pattern string) int {
	t.Helper()
	n := 0
	require.NoError(t, f.o.View(func(doc *page.Document) error {
		sel, err := doc.Query(pattern)
		n = sel.Length()
		return err
	}))
	return n
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want PageClass
	}{
		{"https://www.youtube.com/watch?v=abc", Watch},
		{"https://www.youtube.com/watch/abc", Watch},
		{"https://www.youtube.com/shorts/abc", Other},
		{"https://www.youtube.com/shorts/watch", Other},
		{"https://www.youtube.com/", Home},
		{"https://www.youtube.com", Home},
		{"https://www.youtube.com/feed/subscriptions", Other},
		{"https://www.youtube.com/?watch=1", Home},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Classify(u))
		})
	}
	assert.Equal(t, Other, Classify(nil))
}

func TestApplyAllHomePage(t *testing.T) {
	f := newFixture(t, homeHTML, "https://www.youtube.com/", nil, Options{})

	rep := f.o.ApplyAll()
	assert.Equal(t, Home, rep.Class)
	assert.Equal(t, 2, rep.Hidden[selectors.HomepageItem])
	assert.Equal(t, 1, rep.Hidden[selectors.ShortShelf])
	assert.Positive(t, rep.Hidden[selectors.ShortsNavButton])
	assert.NotContains(t, rep.Hidden, selectors.WatchSuggestion)
	assert.Empty(t, rep.Loading)

	again := f.o.ApplyAll()
	for c, n := range again.Changed {
		assert.Zero(t, n, c)
	}
}

func TestSettingsChangeReappliesImmediately(t *testing.T) {
	f := newFixture(t, homeHTML, "https://www.youtube.com/", nil, Options{})
	f.o.ApplyAll()
	require.Equal(t, 2, f.hidden(t, selectors.HomepageItem))

	require.NoError(t, f.ctrl.Update(context.Background(), settings.Changes{settings.RemoveHomepageVideos: false}))
	assert.Zero(t, f.hidden(t, selectors.HomepageItem))
	assert.Equal(t, 1, f.hidden(t, selectors.ShortShelf), "other concerns untouched")

	require.NoError(t, f.ctrl.Update(context.Background(), settings.Changes{settings.RemoveShorts: false}))
	assert.Zero(t, f.hidden(t, selectors.ShortShelf))
}

func TestWatchPageConcerns(t *testing.T) {
	f := newFixture(t, watchHTML, "https://www.youtube.com/watch?v=abc", nil, Options{})

	rep := f.o.ApplyAll()
	assert.Equal(t, Watch, rep.Class)
	assert.Equal(t, 2, rep.Hidden[selectors.WatchSuggestion])
	assert.NotContains(t, rep.Hidden, selectors.HomepageItem)
	assert.Zero(t, f.hidden(t, selectors.HomepageItem), "homepage grid is only touched on the home page")
	assert.Zero(t, f.caps.callCount(), "transcript is off by default")
}

func TestMutationBurstCoalescesPerGroup(t *testing.T) {
	var mu sync.Mutex
	passes := map[Group]int{}
	f := newFixture(t, homeHTML, "https://www.youtube.com/", nil, Options{
		Throttle: 30 * time.Millisecond,
		OnPass: func(g Group, _ int) {
			mu.Lock()
			passes[g]++
			mu.Unlock()
		},
	})
	f.o.ApplyAll()

	require.NoError(t, f.o.View(func(doc *page.Document) error {
		doc.Root().Find("#grid").AppendHtml(`<ytd-grid-video-renderer id="v3"></ytd-grid-video-renderer>`)
		return nil
	}))
	for i := 0; i < 10; i++ {
		f.o.OnMutation()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return !f.o.Pending(HomepageGroup) }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[Group]int{ShortsGroup: 1, ShortsButtonGroup: 1, HomepageGroup: 1}, passes)
	assert.Equal(t, 3, f.hidden(t, selectors.HomepageItem))
}

func TestTranscriptShownAndSynced(t *testing.T) {
	f := newFixture(t, watchHTML, "https://www.youtube.com/watch?v=abc",
		settings.Changes{settings.ShowTranscript: true}, Options{})

	rep := f.o.ApplyAll()
	assert.Equal(t, "abc", rep.Loading)
	f.o.Wait()

	require.NotNil(t, f.o.Presenter())
	assert.Equal(t, 1, f.find(t, "#secondary > #"+transcript.ContainerID))
	assert.Equal(t, 3, f.find(t, ".transcript-line"))

	f.o.ApplyAll()
	f.o.Wait()
	assert.Equal(t, 1, f.caps.callCount(), "current panel is not refetched")

	f.o.OnTimeUpdate(4)
	assert.Equal(t, 1, f.find(t, ".transcript-line.active"))
	f.o.OnPanelScroll()

	idx, err := f.o.SyncTranscript(27)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	cb := &clipboard{}
	require.NoError(t, f.o.CopyTranscript(cb))
	assert.Equal(t, "[00:00] Hello world\n\n[00:25] foo", cb.text)

	require.NoError(t, f.ctrl.Update(context.Background(), settings.Changes{settings.ShowTranscript: false}))
	assert.Nil(t, f.o.Presenter())
	assert.Zero(t, f.find(t, "#"+transcript.ContainerID))
	assert.ErrorIs(t, f.o.CopyTranscript(cb), ErrNoTranscript)
}

type clipboard struct{ text string }

func (c *clipboard) WriteText(s string) error {
	c.text = s
	return nil
}

func TestStaleCaptionsAreDiscarded(t *testing.T) {
	caps := &fakeCaptions{}
	gateA := caps.gate("a")
	gateB := caps.gate("b")
	f := newFixture(t, watchHTML, "https://www.youtube.com/watch?v=a",
		settings.Changes{settings.ShowTranscript: true}, Options{Captions: caps})

	f.o.ApplyAll()
	require.NoError(t, f.o.OnNavigate("https://www.youtube.com/watch?v=b"))
	f.o.Flush()
	assert.Eventually(t, func() bool { return caps.callCount() == 2 }, time.Second, 5*time.Millisecond)

	stale := engine.GetMetrics()["caption_stale"]
	close(gateA)
	assert.Eventually(t, func() bool { return engine.GetMetrics()["caption_stale"] == stale+1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.find(t, "#"+transcript.ContainerID), "result for a arrived after navigating to b")
	assert.Nil(t, f.o.Presenter())

	close(gateB)
	f.o.Wait()
	require.NotNil(t, f.o.Presenter())
	assert.Equal(t, "b", f.o.Presenter().VideoID())
	var rendered string
	require.NoError(t, f.o.View(func(doc *page.Document) error {
		rendered = transcript.RenderedVideoID(doc)
		return nil
	}))
	assert.Equal(t, "b", rendered)
}

func TestCaptionFailure(t *testing.T) {
	caps := &fakeCaptions{fail: map[string]error{"bad": captions.ErrNoCaptions}}
	f := newFixture(t, watchHTML, "https://www.youtube.com/watch?v=bad",
		settings.Changes{settings.ShowTranscript: true}, Options{Captions: caps})

	f.o.ApplyAll()
	f.o.Wait()
	assert.Zero(t, f.find(t, "#"+transcript.ContainerID), "nothing shown without a panel")

	require.NoError(t, f.o.OnNavigate("https://www.youtube.com/watch?v=good"))
	f.o.Flush()
	f.o.Wait()
	require.Equal(t, 3, f.find(t, ".transcript-line"))

	require.NoError(t, f.o.OnNavigate("https://www.youtube.com/watch?v=bad"))
	f.o.Flush()
	f.o.Wait()
	assert.Equal(t, 1, f.find(t, ".transcript-unavailable"), "visible panel turns neutral")
	assert.Zero(t, f.find(t, ".transcript-line"))
}

func TestSelection(t *testing.T) {
	f := newFixture(t, watchHTML, "https://www.youtube.com/watch?v=abc",
		settings.Changes{settings.ShowTranscript: true}, Options{})
	f.o.ApplyAll()
	f.o.Wait()
	ctx := context.Background()

	var line, outside, header = target(t, f, ".transcript-text"), target(t, f, "#desc"), target(t, f, ".transcript-title")

	r, err := f.o.OnSelection(ctx, line, "  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "ur:Hello", r.UrduTranslation)

	_, err = f.o.OnSelection(ctx, outside, "description")
	assert.ErrorIs(t, err, ErrSelectionIgnored)
	_, err = f.o.OnSelection(ctx, header, "Video Transcript")
	assert.ErrorIs(t, err, ErrSelectionIgnored)
	_, err = f.o.OnSelection(ctx, line, "   ")
	assert.ErrorIs(t, err, ErrSelectionIgnored)
	_, err = f.o.OnSelection(ctx, line, strings.Repeat("a", MaxSelection))
	assert.ErrorIs(t, err, ErrSelectionIgnored)
	_, err = f.o.OnSelection(ctx, line, strings.Repeat("a", MaxSelection-1))
	assert.NoError(t, err)

	assert.Equal(t, []string{"Hello", strings.Repeat("a", MaxSelection-1)}, f.trans.texts)
}

func target(t *testing.T, f *fixture, pattern string) *goquery.Selection {
	t.Helper()
	var sel *goquery.Selection
	require.NoError(t, f.o.View(func(doc *page.Document) error {
		s, err := doc.Query(pattern)
		sel = s
		return err
	}))
	require.Positive(t, sel.Length(), pattern)
	return sel.First()
}

func TestCloseStopsPendingPasses(t *testing.T) {
	var mu sync.Mutex
	ran := 0
	f := newFixture(t, homeHTML, "https://www.youtube.com/", nil, Options{
		Throttle: 20 * time.Millisecond,
		OnPass:   func(Group, int) { mu.Lock(); ran++; mu.Unlock() },
	})
	f.o.OnMutation()
	f.o.Close()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, ran)
}
