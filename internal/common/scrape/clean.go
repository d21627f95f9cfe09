// internal/common/scrape/clean.go
package scrape

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	markupPattern     = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText strips residual markup, collapses whitespace, and truncates to
// MaxContentLength so a single page cannot overwhelm the model context.
func CleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = markupPattern.ReplaceAllString(text, " ")

	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = whitespacePattern.ReplaceAllString(strings.TrimSpace(line), " ")
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	text = strings.Join(chunks, " ")

	if len(text) > MaxContentLength {
		text = text[:MaxContentLength] + "..."
	}
	return text
}
