// Package llm - util.go provides shared utilities for reasoning-service response processing.
package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a response carries no JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in response")

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// ExtractJSONObject pulls a JSON object out of a response that may carry code fences
// or surrounding prose. The fence-stripped text is tried first, then each balanced
// {...} span in order; the first one that is valid JSON wins.
func ExtractJSONObject(text string) (string, error) {
	cleaned := CleanJSONBlock(text)
	if strings.HasPrefix(cleaned, "{") && json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	found := false
	for start := strings.IndexByte(cleaned, '{'); start >= 0; {
		end := balancedObjectEnd(cleaned, start)
		if end < 0 {
			break
		}
		found = true
		if candidate := cleaned[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		next := strings.IndexByte(cleaned[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	if !found {
		return "", ErrNoJSON
	}
	return "", errors.New("response contains malformed JSON object")
}

// balancedObjectEnd returns the index of the '}' closing the object opened at
// start, skipping braces inside JSON strings, or -1 when it never closes.
func balancedObjectEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
