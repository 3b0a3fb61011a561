// Package extract locates the human-readable answer inside agent service
// payloads whose shape differs between upstream versions and tools.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy inspects one known location and reports whether it found text
type Strategy func(doc gjson.Result) (string, bool)

// Strategies are tried in order; the first nonempty result wins
var Strategies = []Strategy{
	MessageContent,
	InlineResponse,
	TopLevelContent,
}

// Parse re-encodes a decoded payload so it can be queried by path. Anything
// that cannot be encoded yields an empty document.
func Parse(payload interface{}) gjson.Result {
	raw, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// Text returns the final answer text in payload, or "" when none is found
func Text(payload interface{}) string {
	doc := Parse(payload)
	if !doc.IsObject() {
		return ""
	}

	for _, strategy := range Strategies {
		if text, ok := strategy(doc); ok {
			return text
		}
	}
	return ""
}

// MessageContent reads result.data.message.content[].text
func MessageContent(doc gjson.Result) (string, bool) {
	return joinTexts(doc.Get("result.data.message.content"))
}

// InlineResponse reads a top-level response string
func InlineResponse(doc gjson.Result) (string, bool) {
	value := doc.Get("response")
	if value.Type != gjson.String {
		return "", false
	}
	text := strings.TrimSpace(value.Str)
	return text, text != ""
}

// TopLevelContent reads content[].text
func TopLevelContent(doc gjson.Result) (string, bool) {
	return joinTexts(doc.Get("content"))
}

// joinTexts collects the string text of every element, drops repeats while
// keeping first-seen order and joins them by newline
func joinTexts(content gjson.Result) (string, bool) {
	if !content.IsArray() {
		return "", false
	}

	seen := make(map[string]struct{})
	var texts []string
	content.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		text := item.Get("text")
		if text.Type != gjson.String {
			return true
		}
		if _, dup := seen[text.Str]; !dup {
			seen[text.Str] = struct{}{}
			texts = append(texts, text.Str)
		}
		return true
	})

	joined := strings.TrimSpace(strings.Join(texts, "\n"))
	return joined, joined != ""
}

// Field returns payload[key] as a string when it is a nonempty scalar
func Field(payload interface{}, key string) string {
	return FieldOf(Parse(payload), key)
}

// FieldOf is Field over an already parsed document
func FieldOf(doc gjson.Result, key string) string {
	if !doc.IsObject() {
		return ""
	}

	value := doc.Get(key)
	switch value.Type {
	case gjson.String:
		return value.Str
	case gjson.Number:
		return value.Raw
	}
	return ""
}
