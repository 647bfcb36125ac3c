package agent

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// ExtractJSON pulls a JSON payload out of free-form model output.
// Precedence: first fenced code block (optionally tagged "json"), then the
// first and longest top-level {...} span, then the trimmed text unchanged.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	if start := strings.Index(response, "{"); start >= 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			return strings.TrimSpace(response[start : end+1])
		}
	}

	return response
}
