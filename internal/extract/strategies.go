package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Text returns the cleaned text of the first element matching sel that
// has any text.
func Text(sel string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		var out string
		d.Query.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = CleanText(s.Text())
			return out == ""
		})
		return out, out != ""
	}
}

// Attr returns the first non-empty attr value among elements matching sel.
func Attr(sel, attr string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		var out string
		d.Query.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(attr)
			out = strings.TrimSpace(v)
			return out == ""
		})
		return out, out != ""
	}
}

// URLAttr is Attr with the value resolved to an absolute URL.
func URLAttr(sel, attr string) Strategy[*Document, string] {
	get := Attr(sel, attr)
	return func(d *Document) (string, bool) {
		v, ok := get(d)
		if !ok {
			return "", false
		}
		return d.Resolve(v)
	}
}

// MetaContent reads <meta name=...> content.
func MetaContent(name string) Strategy[*Document, string] {
	return Attr(`meta[name="`+name+`"]`, "content")
}

// OG reads an OpenGraph property.
func OG(key string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		v := d.OpenGraph()[key]
		return v, v != ""
	}
}

// NextString reads a string field of the embedded Next.js game object.
func NextString(key string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		v := stringField(d.NextGame(), key)
		return v, v != ""
	}
}

// NextURL reads a URL field of the embedded Next.js game object.
func NextURL(key string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		return d.Resolve(stringField(d.NextGame(), key))
	}
}

// NextCount reads a numeric field of the embedded Next.js game object.
func NextCount(key string) Strategy[*Document, int] {
	return func(d *Document) (int, bool) {
		return countField(d.NextGame(), key)
	}
}

// LDString reads a string field from the first JSON-LD object carrying it.
func LDString(key string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		for _, obj := range d.JSONLD() {
			if v := stringField(obj, key); v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// XPath returns the first non-empty value selected by expr. Attribute
// selections (//iframe/@src) yield the attribute value.
func XPath(expr string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		nodes, err := htmlquery.QueryAll(d.Root, expr)
		if err != nil {
			return "", false
		}
		for _, n := range nodes {
			if v := CleanText(htmlquery.InnerText(n)); v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// XPathURL is XPath with the value resolved to an absolute URL.
func XPathURL(expr string) Strategy[*Document, string] {
	get := XPath(expr)
	return func(d *Document) (string, bool) {
		v, ok := get(d)
		if !ok {
			return "", false
		}
		return d.Resolve(v)
	}
}

// ScriptURL searches inline script bodies for re and resolves capture
// group 1.
func ScriptURL(re *regexp.Regexp) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		var out string
		d.Query.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			m := re.FindStringSubmatch(s.Text())
			if len(m) < 2 {
				return true
			}
			if u, ok := d.Resolve(m[1]); ok {
				out = u
				return false
			}
			return true
		})
		return out, out != ""
	}
}

// TextList collects up to max cleaned texts longer than minLen runes from
// elements matching sel.
func TextList(sel string, max, minLen int) Strategy[*Document, []string] {
	keep := Longer(minLen)
	return func(d *Document) ([]string, bool) {
		var out []string
		d.Query.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := CleanText(s.Text()); keep(t) {
				out = append(out, t)
			}
			return len(out) < max
		})
		return out, len(out) > 0
	}
}

// Count parses the first element matching sel as a count. When attr is set
// the attribute value is preferred over the element text.
func Count(sel, attr string) Strategy[*Document, int] {
	return func(d *Document) (int, bool) {
		var (
			n  int
			ok bool
		)
		d.Query.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw := s.Text()
			if attr != "" {
				if v, has := s.Attr(attr); has && strings.TrimSpace(v) != "" {
					raw = v
				}
			}
			n, ok = ParseCount(raw)
			return !ok
		})
		return n, ok
	}
}
