package activities

import (
	"html"
	"regexp"
	"strings"
)

var (
	lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphPattern = regexp.MustCompile(`(?i)</p>\s*<p[^>]*>`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
)

// PlainText reduces the HTML content of a remote note to text, keeping line structure.
func PlainText(content string) string {
	text := lineBreakPattern.ReplaceAllString(content, "\n")
	text = paragraphPattern.ReplaceAllString(text, "\n\n")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(html.UnescapeString(text))
}
