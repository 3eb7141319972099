package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoLLM is returned when the llm translation provider is selected but no client is configured.
var ErrNoLLM = errors.New("llm client not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CompleteTranslation asks the LLM to translate text for the given language pair
// ("en|ur") and returns the fence-stripped JSON reply. Temperature and token
// limits are the client's (LLM_TEMPERATURE, LLM_MAX_TOKENS).
func CompleteTranslation(ctx context.Context, text, langPair string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrNoLLM
	}
	src, dst, ok := strings.Cut(langPair, "|")
	if !ok {
		src, dst = "en", langPair
	}
	prompt := fmt.Sprintf(translatePrompt, languageName(src), languageName(dst), text)
	metrics.LLMCalls.Add(1)
	raw, err := cfg.LLMClient.Complete(ctx, "", prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(raw), nil
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	case "ur":
		return "Urdu"
	case "hi":
		return "Hindi"
	case "ar":
		return "Arabic"
	}
	return code
}

// ExtractJSONField extracts a string field value from malformed JSON.
// Handles escaped quotes and newlines within the value.
func ExtractJSONField(raw, field string) string {
	prefix := `"` + field + `"`
	idx := strings.Index(raw, prefix)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(raw[idx+len(prefix):])
	if len(rest) == 0 || rest[0] != ':' {
		return ""
	}
	rest = strings.TrimSpace(rest[1:])
	if len(rest) == 0 || rest[0] != '"' {
		return ""
	}
	rest = rest[1:]

	var sb strings.Builder
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\\' && i+1 < len(rest) {
			switch rest[i+1] {
			case '"':
				sb.WriteByte('"')
			case 'n':
				sb.WriteByte('\n')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(rest[i])
				continue
			}
			i++
			continue
		}
		if rest[i] == '"' {
			return sb.String()
		}
		sb.WriteByte(rest[i])
	}
	return sb.String()
}
