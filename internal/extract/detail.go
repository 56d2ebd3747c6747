package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/gameharvest/internal/types"
)

const (
	maxDescriptionRunes = 500
	maxControlFeatures  = 8
	maxListItems        = 10
)

var (
	scriptIframeSrc = regexp.MustCompile(`iframe[^>]*src=["']([^"']+)["']`)
	scriptGameFiles = regexp.MustCompile(`src=["']([^"']*game-files[^"']*)["']`)
	scriptGameURL   = regexp.MustCompile(`gameUrl["']?\s*:\s*["']([^"']+)["']`)
)

// DetailRules holds the per-attribute chains applied to a detail page.
type DetailRules struct {
	Title       Chain[*Document, string]
	Embed       Chain[*Document, string]
	Description Chain[*Document, string]
	Features    Chain[*Document, []string]
	Favorites   Chain[*Document, int]
	Likes       Chain[*Document, int]
	Duration    Chain[*Document, string]
	Tags        Chain[*Document, []string]
	Category    Chain[*Document, string]
	Image       Chain[*Document, string]
}

// NewDetailRules builds the detail chains for a site whose item pages live
// under itemPath, whose covers are served from coverHost and whose embeds
// are served from embedHost.
func NewDetailRules(itemPath, coverHost, embedHost string) *DetailRules {
	return &DetailRules{
		Title: Chain[*Document, string]{
			Attribute: "title",
			Valid:     Longer(2),
			Rules: []Rule[*Document, string]{
				{"next_data", NextString("name")},
				{"json_ld", LDString("name")},
				{"h1.game-title", Text("h1.game-title")},
				{"h1", Text("h1")},
				{".game-header h1", Text(".game-header h1")},
				{"og:title", OG("title")},
				{"title", Text("title")},
			},
		},
		Embed: Chain[*Document, string]{
			Attribute: "embed",
			Valid:     AbsoluteURL,
			Rules: []Rule[*Document, string]{
				{"next_data", NextURL("desktopUrl")},
				{"iframe.game-files", URLAttr(`iframe[src*="game-files"]`, "src")},
				{"iframe.site", URLAttr(`iframe[src*="crazygames"]`, "src")},
				{"iframe#game-iframe", URLAttr("iframe#game-iframe, iframe.game-iframe", "src")},
				{"iframe", URLAttr("iframe", "src")},
				{"xpath.lazy_iframe", XPathURL("//iframe/@data-src")},
				{"script.iframe", ScriptURL(scriptIframeSrc)},
				{"script.game_files", ScriptURL(scriptGameFiles)},
				{"script.game_url", ScriptURL(scriptGameURL)},
				{"slug", slugEmbed(itemPath, embedHost)},
			},
		},
		Description: Chain[*Document, string]{
			Attribute: "description",
			Valid:     Longer(10),
			Rules: []Rule[*Document, string]{
				{"next_data", nextDescription},
				{".game-description", Text(".game-description")},
				{".description", Text(".description")},
				{".game-info p", Text(".game-info p")},
				{".game-details p", Text(".game-details p")},
				{"meta.description", MetaContent("description")},
				{"og:description", OG("description")},
			},
		},
		Features: Chain[*Document, []string]{
			Attribute: "features",
			Valid:     NonEmpty[string],
			Rules: []Rule[*Document, []string]{
				{"next_data.controls", nextControls},
				{".game-features li", TextList(".game-features li", maxListItems, 2)},
				{".features li", TextList(".features li", maxListItems, 2)},
				{".game-info ul li", TextList(".game-info ul li", maxListItems, 2)},
			},
		},
		Favorites: Chain[*Document, int]{
			Attribute: "favorites",
			Valid:     NonNegative,
			Rules: []Rule[*Document, int]{
				{"next_data", NextCount("upvotes")},
				{".favorites-count", Count(".favorites-count, .favorite-count", "")},
				{"[data-favorites]", Count("[data-favorites]", "data-favorites")},
				{".game-stats .favorites", Count(".game-stats .favorites", "")},
			},
		},
		Likes: Chain[*Document, int]{
			Attribute: "likes",
			Valid:     NonNegative,
			Rules: []Rule[*Document, int]{
				{"next_data", NextCount("upvotes")},
				{".likes-count", Count(".likes-count, .like-count", "")},
				{"[data-likes]", Count("[data-likes]", "data-likes")},
				{".game-stats .likes", Count(".game-stats .likes", "")},
			},
		},
		Duration: Chain[*Document, string]{
			Attribute: "duration",
			Valid:     Longer(0),
			Rules: []Rule[*Document, string]{
				{".game-duration", Text(".game-duration")},
				{".duration", Text(".duration")},
				{".play-time", Text(".play-time")},
			},
		},
		Tags: Chain[*Document, []string]{
			Attribute: "tags",
			Valid:     NonEmpty[string],
			Rules: []Rule[*Document, []string]{
				{"next_data", nextTags},
				{".game-tags a", TextList(".game-tags a", maxListItems, 1)},
				{".tags a", TextList(".tags a", maxListItems, 1)},
				{".game-categories a", TextList(".game-categories a", maxListItems, 1)},
			},
		},
		Category: Chain[*Document, string]{
			Attribute: "category",
			Valid:     Longer(0),
			Rules: []Rule[*Document, string]{
				{"next_data", nextCategory},
				{"breadcrumb", breadcrumbCategory},
			},
		},
		Image: Chain[*Document, string]{
			Attribute: "image",
			Valid:     AbsoluteURL,
			Rules: []Rule[*Document, string]{
				{"og:image", func(d *Document) (string, bool) { return d.Resolve(d.OpenGraph()["image"]) }},
				{"next_data", NextURL("cover")},
				{"img.cover_host", URLAttr(`img[src*="`+coverHost+`"]`, "src")},
			},
		},
	}
}

// Extract applies every chain to doc. The second return maps each
// attribute that was found to the name of the rule that produced it.
func (r *DetailRules) Extract(doc *Document) (types.DetailRecord, map[string]string) {
	won := make(map[string]string)
	rec := types.DetailRecord{
		URL:         doc.URL.String(),
		CollectedAt: time.Now().UTC(),
	}

	rec.Title = take(r.Title, doc, won)
	rec.IframeURL = take(r.Embed, doc, won)
	rec.Description = TruncateRunes(take(r.Description, doc, won), maxDescriptionRunes)
	rec.Features = take(r.Features, doc, won)
	rec.Favorites = take(r.Favorites, doc, won)
	rec.Likes = take(r.Likes, doc, won)
	rec.Duration = take(r.Duration, doc, won)
	rec.Tags = take(r.Tags, doc, won)
	rec.Category = take(r.Category, doc, won)
	rec.Image = take(r.Image, doc, won)

	return rec, won
}

func take[T any](c Chain[*Document, T], doc *Document, won map[string]string) T {
	v, rule, ok := c.Extract(doc)
	if ok {
		won[c.Attribute] = rule
	}
	return v
}

func nextDescription(d *Document) (string, bool) {
	g := d.NextGame()
	v := StripTags(stringField(g, "descriptionFirst") + " " + stringField(g, "descriptionRest"))
	return v, v != ""
}

// nextControls reads the controls HTML of the Next.js game object and keeps
// the "key = action" entries.
func nextControls(d *Document) ([]string, bool) {
	raw := stringField(d.NextGame(), "controls")
	if raw == "" {
		return nil, false
	}

	var out []string
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err == nil {
		items := frag.Find("li")
		items.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := CleanText(s.Text()); strings.Contains(t, "=") {
				out = append(out, t)
			}
			return len(out) < maxControlFeatures
		})
		if items.Length() > 0 {
			return out, len(out) > 0
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		t := StripTags(line)
		if t == "" || strings.HasPrefix(t, "Controls") || !strings.Contains(t, "=") {
			continue
		}
		out = append(out, t)
		if len(out) == maxControlFeatures {
			break
		}
	}
	return out, len(out) > 0
}

func nextTags(d *Document) ([]string, bool) {
	raw, _ := d.NextGame()["tags"].([]any)
	var out []string
	for _, t := range raw {
		m, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if name := stringField(m, "name"); name != "" {
			out = append(out, name)
		}
		if len(out) == maxListItems {
			break
		}
	}
	return out, len(out) > 0
}

func nextCategory(d *Document) (string, bool) {
	switch c := d.NextGame()["category"].(type) {
	case map[string]any:
		v := stringField(c, "name")
		return v, v != ""
	case string:
		v := strings.TrimSpace(c)
		return v, v != ""
	}
	return "", false
}

// breadcrumbCategory takes the last breadcrumb entry that is not the site
// root. The current page itself is usually not linked.
func breadcrumbCategory(d *Document) (string, bool) {
	var out string
	d.Query.Find(`nav[aria-label*="readcrumb"] a, .breadcrumb a, .breadcrumbs a`).Each(func(_ int, s *goquery.Selection) {
		t := CleanText(s.Text())
		switch strings.ToLower(t) {
		case "", "home", "games", "all games":
			return
		}
		out = t
	})
	return out, out != ""
}

func slugEmbed(itemPath, embedHost string) Strategy[*Document, string] {
	return func(d *Document) (string, bool) {
		if embedHost == "" {
			return "", false
		}
		slug := Slug(d.URL.String(), itemPath)
		if slug == "" {
			return "", false
		}
		return fmt.Sprintf("https://%s/en_US/%s/index.html", embedHost, slug), true
	}
}
