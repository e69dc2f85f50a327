package util

import (
	"regexp"
	"strings"
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	openFenceOnly = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*)$")
)

// ExtractJsonFromText pulls the JSON payload out of a model reply: a fenced
// block first, then the span from the first '{' or '[' to the last '}' or
// ']'. Text without either is returned trimmed and unchanged.
func ExtractJsonFromText(text string) string {
	text = strings.TrimSpace(text)

	if matches := fencedBlock.FindStringSubmatch(text); len(matches) > 1 {
		text = strings.TrimSpace(matches[1])
	} else if matches := openFenceOnly.FindStringSubmatch(text); len(matches) > 1 {
		// reply cut off before the closing fence
		text = strings.TrimSpace(matches[1])
	}

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}
	end := strings.LastIndexAny(text, "}]")
	if end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
