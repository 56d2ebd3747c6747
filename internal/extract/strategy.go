package extract

import (
	"strings"
	"unicode/utf8"
)

// Strategy extracts one attribute from a source, reporting whether a value
// was found. S is usually *Document, or *Card for listing-page anchors.
type Strategy[S, T any] func(S) (T, bool)

// Rule is a named Strategy. The name is reported when the rule wins.
type Rule[S, T any] struct {
	Name string
	Run  Strategy[S, T]
}

// Chain tries its rules in order and keeps the first valid value.
// A later rule never overrides an earlier success.
type Chain[S, T any] struct {
	Attribute string
	Rules     []Rule[S, T]
	Valid     func(T) bool
}

// Extract runs the chain against src. It returns the value, the name of the
// winning rule, and false if no rule produced a valid value.
func (c Chain[S, T]) Extract(src S) (T, string, bool) {
	for _, r := range c.Rules {
		v, ok := r.Run(src)
		if !ok {
			continue
		}
		if c.Valid != nil && !c.Valid(v) {
			continue
		}
		return v, r.Name, true
	}
	var zero T
	return zero, "", false
}

// Longer accepts strings whose trimmed rune length exceeds n.
func Longer(n int) func(string) bool {
	return func(s string) bool {
		return utf8.RuneCountInString(strings.TrimSpace(s)) > n
	}
}

// NonEmpty accepts non-empty slices.
func NonEmpty[T any](v []T) bool { return len(v) > 0 }

// NonNegative accepts counts >= 0.
func NonNegative(n int) bool { return n >= 0 }

// AbsoluteURL accepts absolute http(s) URLs.
func AbsoluteURL(s string) bool {
	_, ok := ResolveURL(nil, s)
	return ok
}
