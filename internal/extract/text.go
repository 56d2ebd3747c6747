package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// CleanText trims s and collapses internal whitespace runs to one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var blockTags = map[string]bool{
	"p": true, "br": true, "li": true, "div": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripTags returns the visible text of an HTML fragment with entities
// decoded. Block-level boundaries become spaces.
func StripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return CleanText(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}

// HasMarkup reports whether s contains at least one HTML tag. A bare "<"
// or ">" in running text is not a tag.
func HasMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
