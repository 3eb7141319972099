package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu      sync.Mutex
	calls   []time.Time
	texts   []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeService) Translate(_ context.Context, text string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{UrduTranslation: "ur:" + text}, nil
}

func (f *fakeService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestCacheBoundEvictsOldestInserted(t *testing.T) {
	svc := &fakeService{}
	gw := NewGateway(svc, 0, 50)
	ctx := context.Background()

	for i := 0; i < 51; i++ {
		_, err := gw.Translate(ctx, fmt.Sprintf("text %d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, 50, gw.Len())
	assert.False(t, gw.Cached("text 0"))
	assert.True(t, gw.Cached("text 1"))
	assert.True(t, gw.Cached("text 50"))
}

func TestCacheHitSkipsService(t *testing.T) {
	svc := &fakeService{}
	gw := NewGateway(svc, 0, 50)
	ctx := context.Background()

	first, err := gw.Translate(ctx, "Hello")
	require.NoError(t, err)
	second, err := gw.Translate(ctx, "Hello")
	require.NoError(t, err)
	_, err = gw.Translate(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, svc.count(), "keys are case-sensitive")
}

func TestRateLimitSpacesDispatches(t *testing.T) {
	const interval = 300 * time.Millisecond
	svc := &fakeService{}
	gw := NewGateway(svc, interval, 50)
	ctx := context.Background()

	_, err := gw.Translate(ctx, "a")
	require.NoError(t, err)
	_, err = gw.Translate(ctx, "b")
	require.NoError(t, err)

	require.Len(t, svc.calls, 2)
	assert.GreaterOrEqual(t, svc.calls[1].Sub(svc.calls[0]), interval-20*time.Millisecond)
}

func TestRateLimitWaitHonoursContext(t *testing.T) {
	gw := NewGateway(&fakeService{}, time.Hour, 50)
	_, err := gw.Translate(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gw.Translate(ctx, "b")
	assert.Error(t, err)
	assert.False(t, gw.Cached("b"))
}

func TestSingleFlightDropsConcurrentMiss(t *testing.T) {
	svc := &fakeService{}
	gw := NewGateway(svc, 0, 50)
	ctx := context.Background()

	_, err := gw.Translate(ctx, "warm")
	require.NoError(t, err)

	svc.started = make(chan struct{}, 1)
	svc.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := gw.Translate(ctx, "slow")
		done <- err
	}()
	<-svc.started

	_, err = gw.Translate(ctx, "other")
	assert.ErrorIs(t, err, ErrBusy)

	hit, err := gw.Translate(ctx, "warm")
	require.NoError(t, err, "cache hits are served while busy")
	assert.Equal(t, "ur:warm", hit.UrduTranslation)

	close(svc.release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, svc.count())
	assert.False(t, gw.Cached("other"), "dropped call is not queued")
}

func TestFailureIsNotCached(t *testing.T) {
	svc := &fakeService{err: errors.New("quota exceeded")}
	gw := NewGateway(svc, 0, 50)
	ctx := context.Background()

	_, err := gw.Translate(ctx, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Zero(t, gw.Len())

	svc.err = nil
	_, err = gw.Translate(ctx, "a")
	require.NoError(t, err, "guard released after a failure")
	assert.True(t, gw.Cached("a"))
}

func TestEmptyText(t *testing.T) {
	svc := &fakeService{}
	_, err := NewGateway(svc, 0, 50).Translate(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, svc.count())
}

func TestRelay(t *testing.T) {
	gw := NewGateway(&fakeService{}, 0, 50)
	ctx := context.Background()

	ok := Relay(ctx, gw, Message{Type: MessageTranslateText, Text: "hi"})
	require.True(t, ok.Success)
	assert.Equal(t, "ur:hi", ok.Data.UrduTranslation)
	assert.Empty(t, ok.Error)

	bad := Relay(ctx, gw, Message{Type: "PING", Text: "hi"})
	assert.False(t, bad.Success)
	assert.Nil(t, bad.Data)
	assert.Contains(t, bad.Error, "PING")

	failing := NewGateway(&fakeService{err: errors.New("Translation API Error (503)")}, 0, 50)
	resp := Relay(ctx, failing, Message{Type: MessageTranslateText, Text: "x"})
	assert.False(t, resp.Success)
	assert.Equal(t, "Translation API Error (503)", resp.Error)
}

func TestMyMemoryService(t *testing.T) {
	var gotQuery, gotPair string
	translated := "ہیلو"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		switch gotQuery {
		case "boom":
			w.WriteHeader(http.StatusTooManyRequests)
		case "blank":
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":""}}`))
		default:
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":"` + translated + `"},"responseStatus":200}`))
		}
	}))
	defer srv.Close()

	svc := &MyMemoryService{Endpoint: srv.URL, LangPair: "en|ur", HTTP: srv.Client()}
	ctx := context.Background()

	r, err := svc.Translate(ctx, "hello there friend")
	require.NoError(t, err)
	assert.Equal(t, "hello there friend", gotQuery)
	assert.Equal(t, "en|ur", gotPair)
	assert.Equal(t, translated, r.UrduTranslation)
	assert.Equal(t, "hello there friend", r.BestWord)
	assert.Equal(t, []string{"hello", "there", "friend"}, r.Vocabulary)
	assert.Equal(t, `English: "hello there friend" | This phrase is commonly used in conversational English.`, r.Context)

	r, err = svc.Translate(ctx, "blank")
	require.NoError(t, err)
	assert.Equal(t, FallbackTranslation, r.UrduTranslation)

	_, err = svc.Translate(ctx, "boom")
	require.Error(t, err)
	assert.Equal(t, "Translation API Error (429)", err.Error())
}

func TestBestWordAndVocabulary(t *testing.T) {
	assert.Equal(t, "short text", bestWord("short text"))
	assert.Equal(t, "one two three four five...", bestWord("one two three four five six seven eight"))

	assert.Equal(t, []string{"quick", "brown", "jumps"}, vocabulary("The Quick brown fox jumps over"))
	assert.Equal(t, []string{"a to", "a to", "a to"}, vocabulary("a to"))
}

func TestLLMService(t *testing.T) {
	ctx := context.Background()

	valid := &LLMService{LangPair: "en|ur", Complete: func(_ context.Context, text, pair string) (string, error) {
		assert.Equal(t, "en|ur", pair)
		return `{"urduTranslation":"ترجمہ","bestWord":"go","vocabulary":["go"],"context":"verb"}`, nil
	}}
	r, err := valid.Translate(ctx, "let's go")
	require.NoError(t, err)
	assert.Equal(t, Result{UrduTranslation: "ترجمہ", BestWord: "go", Vocabulary: []string{"go"}, Context: "verb"}, r)

	truncated := &LLMService{Complete: func(context.Context, string, string) (string, error) {
		return `{"urduTranslation":"جزوی","bestWord":"run`, nil
	}}
	r, err = truncated.Translate(ctx, "running fast")
	require.NoError(t, err)
	assert.Equal(t, "جزوی", r.UrduTranslation)
	assert.Equal(t, "run", r.BestWord)
	assert.Equal(t, []string{"running", "fast"}, r.Vocabulary)

	failing := &LLMService{Complete: func(context.Context, string, string) (string, error) {
		return "", errors.New("no key")
	}}
	_, err = failing.Translate(ctx, "x")
	assert.ErrorContains(t, err, "no key")
}
