package engine

// LLM prompt templates: data only, no logic.

// translatePrompt asks for a learner-oriented translation in the same JSON shape
// the MyMemory provider is mapped into.
// Args: source language, target language, text.
const translatePrompt = `You are a language tutor. Translate the %s text below into %s for a learner.

Respond with valid JSON only (no markdown, no ` + "`" + `json` + "`" + ` block):
{
  "urduTranslation": "the full translation",
  "bestWord": "the key word or short phrase of the original",
  "vocabulary": ["up to three useful words from the original, lowercased"],
  "context": "one sentence on how the phrase is used"
}

Rules:
- urduTranslation holds the translation in the target language whatever the target is
- Keep vocabulary entries in the source language
- Do NOT add commentary outside the JSON

Text: %s`
