// Package extract pulls a single JSON object out of free-form model output.
//
// Generative responses routinely wrap the payload in markdown fences or
// conversational prose, and occasionally smuggle raw control bytes into
// string values. Deeper damage, such as trailing commas, is out of scope and
// reported as a malformed response.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avendel/chronovox/internal/fault"
)

// Object returns the first JSON object embedded in text.
func Object(text string) (map[string]any, error) {
	cleaned := stripFences(text)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fault.New(fault.MalformedResponse, "no JSON object in response")
	}
	span := cleaned[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err == nil {
		return obj, nil
	}

	// Second chance: drop raw control characters and parse once more.
	span = stripControl(span)
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fault.Wrap(fault.MalformedResponse, fmt.Errorf("parse scene payload: %w", err))
	}
	return obj, nil
}

// stripFences removes markdown code fence markers around the payload.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// stripControl removes characters in the 0x00-0x1F range.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
