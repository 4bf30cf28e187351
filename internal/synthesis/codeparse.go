package synthesis

import (
	"encoding/json"
	"strings"

	"docquery/internal/models"
)

// ParseCodeOutput pulls the structured block out of a code-mode answer.
// Every field is optional; any parse failure returns nil so the caller
// degrades to raw text.
func ParseCodeOutput(text string) *models.CodeOutput {
	block := fencedJSON(text)
	if block == "" {
		block = braceSpan(text)
	}
	if block == "" {
		return nil
	}

	var out models.CodeOutput
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil
	}
	if len(out.Files) == 0 && len(out.Commands) == 0 && out.Output == "" {
		return nil
	}
	return &out
}

// fencedJSON returns the body of the first ```json fence, if any.
func fencedJSON(text string) string {
	start := strings.Index(text, "```json")
	if start < 0 {
		return ""
	}
	rest := text[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// braceSpan returns the outermost {...} span as a fallback for models that
// skip the fence.
func braceSpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
