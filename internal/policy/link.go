package policy

import (
	"regexp"
	"strings"
)

var (
	linkRe = regexp.MustCompile(`(?i)https?://`)
	urlRe  = regexp.MustCompile(`(?i)https?://\S+`)
)

// IsLink reports whether text carries an http or https URL.
func IsLink(text string) bool {
	return linkRe.MatchString(text)
}

// ExtractURL returns the first URL in text, or "" if there is none.
// Trailing punctuation that commonly closes a sentence is dropped.
func ExtractURL(text string) string {
	u := urlRe.FindString(text)
	return strings.TrimRight(u, ".,;:!?)]}>\"'")
}
