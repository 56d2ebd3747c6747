package extract

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// Document is a parsed page shared by every strategy. The goquery
// document and the XPath root share one *html.Node tree.
type Document struct {
	URL   *url.URL
	Body  []byte
	Query *goquery.Document
	Root  *html.Node

	nextOnce sync.Once
	nextGame map[string]any

	ldOnce sync.Once
	jsonLD []map[string]any

	ogOnce sync.Once
	og     map[string]string
}

// NewDocument parses body as HTML served from pageURL.
func NewDocument(pageURL string, body []byte) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	q := goquery.NewDocumentFromNode(root)
	q.Url = u
	return &Document{URL: u, Body: body, Query: q, Root: root}, nil
}

// NextGame returns the game object embedded in a Next.js data script
// (props.pageProps.game), or nil when the page carries none.
func (d *Document) NextGame() map[string]any {
	d.nextOnce.Do(func() {
		d.Query.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw := strings.TrimSpace(s.Text())
			if !strings.HasPrefix(raw, "{") || !strings.Contains(raw, "props") {
				return true
			}
			var payload struct {
				Props struct {
					PageProps struct {
						Game map[string]any `json:"game"`
					} `json:"pageProps"`
				} `json:"props"`
			}
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				return true
			}
			if payload.Props.PageProps.Game == nil {
				return true
			}
			d.nextGame = payload.Props.PageProps.Game
			return false
		})
	})
	return d.nextGame
}

// JSONLD returns every object found in ld+json scripts.
func (d *Document) JSONLD() []map[string]any {
	d.ldOnce.Do(func() {
		d.Query.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
			raw := strings.TrimSpace(s.Text())
			if raw == "" {
				return
			}
			var obj map[string]any
			if err := json.Unmarshal([]byte(raw), &obj); err == nil {
				d.jsonLD = append(d.jsonLD, obj)
				return
			}
			var arr []map[string]any
			if err := json.Unmarshal([]byte(raw), &arr); err == nil {
				d.jsonLD = append(d.jsonLD, arr...)
			}
		})
	})
	return d.jsonLD
}

// OpenGraph returns og: meta properties keyed without the prefix.
func (d *Document) OpenGraph() map[string]string {
	d.ogOnce.Do(func() {
		d.og = make(map[string]string)
		d.Query.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
			property, _ := s.Attr("property")
			content, _ := s.Attr("content")
			content = strings.TrimSpace(content)
			if property != "" && content != "" {
				d.og[strings.TrimPrefix(property, "og:")] = content
			}
		})
	})
	return d.og
}

// Resolve turns ref into an absolute http(s) URL using the document's URL
// as the base. Protocol-relative references are upgraded to https.
func (d *Document) Resolve(ref string) (string, bool) {
	return ResolveURL(d.URL, ref)
}

// ResolveURL resolves ref against base and accepts only http(s) results.
func ResolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		ref = scheme + ":" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if base == nil || base.Host == "" {
			return "", false
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func countField(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		return ParseCount(v.String())
	case string:
		return ParseCount(v)
	default:
		return 0, false
	}
}
