package adf

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Placeholder is returned when a document has no visible content.
const Placeholder = "_No description provided_"

// Translate converts a raw Jira body (ADF object, JSON string, or null) into
// markdown. It never fails: content that cannot be parsed degrades to its
// visible text, and empty content yields Placeholder.
func Translate(raw json.RawMessage) string {
	return TranslateOr(raw, Placeholder)
}

// TranslateOr is Translate with a caller-chosen placeholder.
func TranslateOr(raw json.RawMessage, placeholder string) string {
	md := strings.TrimSpace(toMarkdown(raw))
	if md == "" {
		return placeholder
	}
	return md
}

// TranslateString converts a plain or wiki-markup string.
func TranslateString(s string) string {
	md := strings.TrimSpace(FromWiki(s))
	if md == "" {
		return Placeholder
	}
	return md
}

func toMarkdown(raw json.RawMessage) string {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return FromWiki(s)
		}
	case '{':
		if doc, err := Parse(data); err == nil {
			return Render(doc)
		}
		return extractText(data)
	case '[':
		return extractText(data)
	}

	return FromWiki(string(data))
}

// extractText collects every "text" string of a JSON tree that did not
// decode as ADF.
func extractText(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	var parts []string
	var walk func(any)
	walk = func(n any) {
		switch t := n.(type) {
		case map[string]any:
			if s, ok := t["text"].(string); ok && s != "" {
				parts = append(parts, s)
			}
			if c, ok := t["content"]; ok {
				walk(c)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case string:
			parts = append(parts, t)
		}
	}
	walk(v)
	return strings.Join(parts, " ")
}
