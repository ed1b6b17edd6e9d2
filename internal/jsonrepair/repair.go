// Package jsonrepair recovers a JSON object from free-form LLM output.
//
// The repair is a best-effort heuristic, not a general JSON fixer. It strips
// Markdown code fences, keeps only the first of several concatenated top-level
// objects, and appends closing braces when the text was cut short. Anything it
// cannot recover is reported as apperr.ErrMalformedJSON and the caller falls back.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/modeler/internal/apperr"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+.-]*\\s*\\n(.*?)\\n?```")

// StripFences removes a surrounding Markdown code fence (```json ... ```).
// When the reply carries prose around a fenced block, the first block wins.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Unterminated fence: drop the opening line only.
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimLeft(text, "`")
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// Repair parses text into a JSON object, applying the repairs described in
// the package comment.
func Repair(text string) (map[string]any, error) {
	cleaned := StripFences(text)
	if cleaned == "" {
		return nil, apperr.ErrEmptyResponse
	}

	if hasConcatenatedObjects(cleaned) {
		cleaned = firstObject(cleaned)
	}

	obj, err := decodeObject(cleaned)
	if err == nil {
		return obj, nil
	}

	opens, closes := countBraces(cleaned)
	if missing := opens - closes; missing > 0 {
		if obj, retryErr := decodeObject(cleaned + strings.Repeat("}", missing)); retryErr == nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedJSON, err)
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	return obj, nil
}

func hasConcatenatedObjects(text string) bool {
	return strings.Contains(text, "}\n{") || strings.Contains(text, "}\n\n{")
}

// firstObject returns the first balanced top-level object in text. If the
// first object is itself unbalanced it cuts at the first separator and
// restores the closing brace the cut removed.
func firstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	if i := strings.Index(text, "}\n"); i >= 0 {
		return text[:i] + "}"
	}
	return text
}

// countBraces counts object braces outside of string literals.
func countBraces(text string) (opens, closes int) {
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			opens++
		case c == '}':
			closes++
		}
	}
	return opens, closes
}
