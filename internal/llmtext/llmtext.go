// Package llmtext extracts structured data from LLM completion text.
//
// Models frequently wrap JSON answers in prose or markdown fences, so the
// extractors first attempt a strict parse of the whole reply and then fall
// back to the outermost braced (or bracketed) substring.
package llmtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON payload is found in the text.
var ErrNoJSON = errors.New("llmtext: no JSON payload found")

// ExtractObject unmarshals a JSON object from raw LLM output into v.
// It first tries the full text, then the substring from the first '{' to the
// last '}'.
func ExtractObject(raw string, v any) error {
	return extract(raw, "{", "}", v)
}

// ExtractArray unmarshals a JSON array from raw LLM output into v.
// It first tries the full text, then the substring from the first '[' to the
// last ']'.
func ExtractArray(raw string, v any) error {
	return extract(raw, "[", "]", v)
}

func extract(raw, open, close string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	start := strings.Index(trimmed, open)
	end := strings.LastIndex(trimmed, close)
	if start == -1 || end <= start {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err != nil {
		return fmt.Errorf("llmtext: parse embedded JSON: %w", err)
	}
	return nil
}
