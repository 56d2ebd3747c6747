package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var countPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmM])?\b`)

// ParseCount reads the first number in text, tolerating thousands
// separators and a K (x1,000) or M (x1,000,000) suffix.
func ParseCount(text string) (int, bool) {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		f *= 1_000
	case "M":
		f *= 1_000_000
	}
	v := math.Round(f)
	if v < 0 || v > 1<<53 {
		return 0, false
	}
	return int(v), true
}

// FormatCount renders n in the shorthand ParseCount reads back exactly.
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', -1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', -1, 64) + "K"
	default:
		return strconv.Itoa(n)
	}
}
