package intel

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const summaryLimit = 400

var strictPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// PlainText strips every tag from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	text := html.UnescapeString(strictPolicy.Sanitize(fragment))
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return normalizeSpace(text)
}

// normalizeSpace collapses multiple spaces into one and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clip cuts s to at most n runes, backing up to a word boundary.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
