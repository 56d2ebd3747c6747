package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Card is one item link on a listing page together with the anchor
// element it was found on.
type Card struct {
	Doc    *Document
	Anchor *goquery.Selection

	// URL is the canonical item URL.
	URL string

	// Hint is a title remembered from an earlier scan, if any.
	Hint string
}

// ItemLinkSelectors returns the ordered selectors used to find item links
// on a listing page. The generic anchor scan comes last.
func ItemLinkSelectors(itemPath string) []string {
	return []string{
		`a[href*="` + itemPath + `"]`,
		".game-card a",
		".game-item a",
		"a.game-link, .game-link a",
		`a[data-testid*="game"]`,
		".game-tile a",
		"a[href]",
	}
}

// ScanItemLinks returns every anchor whose resolved URL path contains
// itemPath, canonicalized and deduplicated in document order of the first
// selector that reached it.
func ScanItemLinks(doc *Document, itemPath string) []Card {
	seen := make(map[string]bool)
	var cards []Card
	for _, sel := range ItemLinkSelectors(itemPath) {
		doc.Query.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			canon, ok := CanonicalRef(doc.URL, href)
			if !ok || Slug(canon, itemPath) == "" || seen[canon] {
				return
			}
			seen[canon] = true
			cards = append(cards, Card{Doc: doc, Anchor: a, URL: canon})
		})
	}
	return cards
}

// TitleHint returns the anchor's visible text.
func (c *Card) TitleHint() string {
	if c.Anchor == nil {
		return ""
	}
	return CleanText(c.Anchor.Text())
}

var imageAttrs = []string{"src", "data-src", "data-lazy", "data-original", "data-srcset"}

// imageSrc reads the first usable image reference of img.
func (c *Card) imageSrc(img *goquery.Selection) (string, bool) {
	for _, attr := range imageAttrs {
		v, ok := img.Attr(attr)
		if !ok || strings.TrimSpace(v) == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		if attr == "data-srcset" {
			first := strings.TrimSpace(strings.Split(v, ",")[0])
			if f := strings.Fields(first); len(f) > 0 {
				v = f[0]
			}
		}
		if u, ok := c.Doc.Resolve(v); ok {
			return u, true
		}
	}
	return "", false
}

func cardChild(sel string) Strategy[*Card, string] {
	return func(c *Card) (string, bool) {
		var out string
		c.Anchor.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = CleanText(s.Text())
			if out == "" {
				out = strings.TrimSpace(s.AttrOr("alt", ""))
			}
			return out == ""
		})
		return out, out != ""
	}
}

func cardImageIn(scope func(*Card) *goquery.Selection, sel string) Strategy[*Card, string] {
	return func(c *Card) (string, bool) {
		root := scope(c)
		if root == nil || root.Length() == 0 {
			return "", false
		}
		var out string
		root.Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			v, ok := c.imageSrc(img)
			if ok {
				out = v
			}
			return !ok
		})
		return out, out != ""
	}
}

func anchorScope(c *Card) *goquery.Selection { return c.Anchor }
func parentScope(c *Card) *goquery.Selection { return c.Anchor.Parent() }
func grandScope(c *Card) *goquery.Selection { return c.Anchor.Parent().Parent() }
func cardScope(c *Card) *goquery.Selection { return c.Anchor.Closest("article, section, div") }
func documentScope(c *Card) *goquery.Selection { return c.Doc.Query.Selection }

// NewCardTitle builds the title chain for listing-page cards.
func NewCardTitle(itemPath string) Chain[*Card, string] {
	titler := cases.Title(language.English)
	return Chain[*Card, string]{
		Attribute: "title",
		Valid:     Longer(2),
		Rules: []Rule[*Card, string]{
			{"img[alt]", func(c *Card) (string, bool) {
				v := strings.TrimSpace(c.Anchor.Find("img[alt]").First().AttrOr("alt", ""))
				return v, v != ""
			}},
			{".game-title", cardChild(".game-title")},
			{".title", cardChild(".title")},
			{"h1", cardChild("h1")},
			{"h2", cardChild("h2")},
			{"h3", cardChild("h3")},
			{"span", cardChild("span")},
			{"anchor_text", func(c *Card) (string, bool) {
				v := c.TitleHint()
				return v, v != ""
			}},
			{"anchor_title", func(c *Card) (string, bool) {
				v := strings.TrimSpace(c.Anchor.AttrOr("title", ""))
				return v, v != ""
			}},
			{"hint", func(c *Card) (string, bool) {
				return c.Hint, c.Hint != ""
			}},
			{"slug", func(c *Card) (string, bool) {
				v := SlugTitle(titler, Slug(c.URL, itemPath))
				return v, v != ""
			}},
		},
	}
}

// NewCardImage builds the cover image chain for listing-page cards.
func NewCardImage(coverHost string) Chain[*Card, string] {
	hostImgs := `img[src*="` + coverHost + `"], img[data-src*="` + coverHost + `"], img[data-lazy*="` + coverHost + `"]`
	return Chain[*Card, string]{
		Attribute: "image",
		Valid:     AbsoluteURL,
		Rules: []Rule[*Card, string]{
			{"anchor_img", cardImageIn(anchorScope, "img")},
			{"parent_img", cardImageIn(parentScope, "img")},
			{"grandparent_img", cardImageIn(grandScope, "img")},
			{"card_cover", cardImageIn(cardScope, hostImgs+", .game-image img, .game-cover img, .game-thumbnail img")},
			{"page_cover", pageCover(hostImgs)},
		},
	}
}

// pageCover falls back to a cover anywhere on the page whose URL mentions
// the item slug.
func pageCover(sel string) Strategy[*Card, string] {
	return func(c *Card) (string, bool) {
		slug := c.URL[strings.LastIndex(c.URL, "/")+1:]
		if slug == "" {
			return "", false
		}
		var out string
		documentScope(c).Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			v, ok := c.imageSrc(img)
			if ok && strings.Contains(v, slug) {
				out = v
				return false
			}
			return true
		})
		return out, out != ""
	}
}

// SlugTitle turns "moto-x3m_pool" into "Moto X3m Pool".
func SlugTitle(titler cases.Caser, slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return ""
	}
	return titler.String(strings.Join(words, " "))
}

var pathCategories = []struct {
	segment  string
	category string
}{
	{"action", "Action"},
	{"racing", "Racing"},
	{"puzzle", "Puzzle"},
	{"adventure", "Adventure"},
	{"sports", "Sports"},
	{"strategy", "Strategy"},
}

// CategoryFromURL maps a category path segment in rawURL to a source
// category name. Unknown paths fall to "Other".
func CategoryFromURL(rawURL string) string {
	for _, pc := range pathCategories {
		if HasPathSegment(rawURL, pc.segment) {
			return pc.category
		}
	}
	return "Other"
}
