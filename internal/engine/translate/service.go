package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytfocus/internal/engine"
)

// FallbackTranslation is shown when the provider answers without a translation.
const FallbackTranslation = "ترجمہ دستیاب نہیں"

const maxResponseBytes = 512 * 1024

// MyMemoryService queries the MyMemory public API.
type MyMemoryService struct {
	Endpoint string
	LangPair string
	HTTP     *http.Client
}

// NewMyMemoryService returns a service configured from engine.Cfg.
func NewMyMemoryService() *MyMemoryService {
	return &MyMemoryService{
		Endpoint: engine.Cfg.TranslateAPIURL,
		LangPair: engine.Cfg.TranslateLangPair,
		HTTP:     engine.Cfg.HTTPClient,
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// Translate implements Service.
func (s *MyMemoryService) Translate(ctx context.Context, text string) (Result, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", s.LangPair)
	endpoint := s.Endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("Translation API Error (%d)", resp.StatusCode) //nolint:staticcheck // shown to the user verbatim
	}

	var data myMemoryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		return Result{}, fmt.Errorf("decode translation: %w", err)
	}
	translated := data.ResponseData.TranslatedText
	if translated == "" {
		translated = FallbackTranslation
	}
	return Result{
		UrduTranslation: translated,
		BestWord:        bestWord(text),
		Vocabulary:      vocabulary(text),
		Context:         `English: "` + text + `" | This phrase is commonly used in conversational English.`,
	}, nil
}

// bestWord is the text itself, or its first five words when longer than 30 characters.
func bestWord(text string) string {
	if utf8.RuneCountInString(text) <= 30 {
		return text
	}
	words := strings.Fields(text)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ") + "..."
}

// vocabulary is up to three lowercased words longer than three characters,
// else the text repeated three times.
func vocabulary(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 3 {
			out = append(out, strings.ToLower(w))
			if len(out) == 3 {
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{text, text, text}
	}
	return out
}

// LLMService asks the configured LLM for the four result fields.
type LLMService struct {
	LangPair string
	// Complete defaults to engine.CompleteTranslation.
	Complete func(ctx context.Context, text, langPair string) (string, error)
}

// NewLLMService returns a service configured from engine.Cfg.
func NewLLMService() *LLMService {
	return &LLMService{LangPair: engine.Cfg.TranslateLangPair, Complete: engine.CompleteTranslation}
}

// Translate implements Service.
func (s *LLMService) Translate(ctx context.Context, text string) (Result, error) {
	complete := s.Complete
	if complete == nil {
		complete = engine.CompleteTranslation
	}
	raw, err := complete(ctx, text, s.LangPair)
	if err != nil {
		return Result{}, fmt.Errorf("llm translation: %w", err)
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		// Truncated or chatty replies still tend to carry the string fields.
		r = Result{
			UrduTranslation: engine.ExtractJSONField(raw, "urduTranslation"),
			BestWord:        engine.ExtractJSONField(raw, "bestWord"),
			Context:         engine.ExtractJSONField(raw, "context"),
		}
	}
	if r.UrduTranslation == "" {
		r.UrduTranslation = FallbackTranslation
	}
	if r.BestWord == "" {
		r.BestWord = bestWord(text)
	}
	if len(r.Vocabulary) == 0 {
		r.Vocabulary = vocabulary(text)
	}
	if r.Context == "" {
		r.Context = `English: "` + text + `"`
	}
	return r, nil
}

// NewService picks the provider named by engine.Cfg.TranslateProvider.
func NewService() Service {
	if strings.EqualFold(engine.Cfg.TranslateProvider, "llm") && engine.Cfg.LLMClient != nil {
		return NewLLMService()
	}
	return NewMyMemoryService()
}
