package ingest

import (
	"regexp"
	"strings"
)

var (
	spacesAndTabs     = regexp.MustCompile(`[ \t]+`)
	excessNewlines    = regexp.MustCompile(`\n{3,}`)
	oddHorizontalRuns = regexp.MustCompile(`[^\S\n]{2,}`)
)

// Preprocess normalizes extracted text before chunking and embedding.
// It unifies line endings, collapses runs of horizontal whitespace, and
// caps blank runs at a single empty line so paragraph structure survives.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spacesAndTabs.ReplaceAllString(text, " ")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = oddHorizontalRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
