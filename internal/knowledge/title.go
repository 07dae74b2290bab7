package knowledge

import (
	"regexp"
	"strings"
)

const (
	maxTitleLen     = 60
	minTitleWordCut = 30
	ellipsis        = "..."
)

var (
	markdownMarkers = regexp.MustCompile(`[#*_\-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// SynthesizeTitle derives a short label from free-form content when none was
// supplied. Pure and deterministic: markdown markers are stripped, whitespace
// collapsed, and the first sentence taken; anything past 60 characters is
// truncated, preferring the last word boundary after character 30.
func SynthesizeTitle(content string) string {
	cleaned := markdownMarkers.ReplaceAllString(content, "")
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	first := cleaned
	if idx := strings.IndexAny(cleaned, ".!?\n"); idx >= 0 {
		first = cleaned[:idx]
	}
	first = strings.TrimSpace(first)

	runes := []rune(first)
	if len(runes) <= maxTitleLen {
		return first
	}

	truncated := runes[:maxTitleLen]
	lastSpace := -1
	for i, r := range truncated {
		if r == ' ' {
			lastSpace = i
		}
	}

	if lastSpace > minTitleWordCut {
		truncated = truncated[:lastSpace]
	}

	return string(truncated) + ellipsis
}
