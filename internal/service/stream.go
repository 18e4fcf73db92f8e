package service

import (
	"regexp"
	"strings"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// StripHTML converts HTML breaks to newlines and removes all HTML tags.
func StripHTML(s string) string {
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	return s
}

// IsTrivialContent reports whether an answer has nothing worth rendering
// yet: blank text or a lone markdown heading marker.
func IsTrivialContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	return strings.Trim(trimmed, "#*-_ ") == ""
}

// ExcerptLine returns the first non-empty line of text, cut to max runes.
func ExcerptLine(text string, max int) string {
	for _, line := range strings.Split(StripHTML(text), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		r := []rune(line)
		if max > 3 && len(r) > max {
			return string(r[:max-3]) + "..."
		}
		return line
	}
	return ""
}
