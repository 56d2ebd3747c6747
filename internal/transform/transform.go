// Package transform maps merged records onto the catalog's record shape.
package transform

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// DefaultDescription replaces an empty source description.
const DefaultDescription = "A fun and exciting online game!"

const (
	coverQuery = "metadata=none&quality=85&width=273&fit=crop"
	ellipsis   = "..."
)

// categories maps source category names to the catalog vocabulary.
// Lookups are case-sensitive.
var categories = map[string]string{
	"Racing":     "racing",
	"Action":     "action",
	"Adventure":  "adventure",
	"Puzzle":     "puzzle",
	"Strategy":   "strategy",
	"Simulation": "simulation",
	"Sports":     "sports",
	"Fighting":   "fighting",
	"Shooting":   "shooting",
	"Casual":     "casual",
	".io":        "io",
	"IO":         "io",
	"Other":      "other",
}

// Transformer builds TargetGameRecords from MergedRecords.
type Transformer struct {
	idOffset   int
	descCap    int
	baseOrigin string
	coverHost  string
	embedHost  string
	itemPath   string
	logger     *slog.Logger
}

// New creates a Transformer from the site and transform settings.
func New(cfg *config.Config, logger *slog.Logger) *Transformer {
	return &Transformer{
		idOffset:   cfg.Transform.IDOffset,
		descCap:    cfg.Transform.DescriptionCap,
		baseOrigin: extract.Origin(cfg.Site.BaseURL),
		coverHost:  cfg.Site.CoverHost,
		embedHost:  cfg.Site.EmbedHost,
		itemPath:   cfg.Site.ItemPath,
		logger:     logger.With("component", "transformer"),
	}
}

// Transform maps merged in order, assigning dense ids from the configured
// offset.
func (t *Transformer) Transform(merged []types.MergedRecord) []types.TargetGameRecord {
	out := make([]types.TargetGameRecord, 0, len(merged))
	inferred := 0
	for i, m := range merged {
		rec, usedInference := t.transformOne(t.idOffset+i, m)
		if usedInference {
			inferred++
		}
		out = append(out, rec)
	}
	t.logger.Info("transform complete", "records", len(out), "with_inferred_fields", inferred)
	return out
}

func (t *Transformer) transformOne(id int, m types.MergedRecord) (types.TargetGameRecord, bool) {
	inferred := false

	features := m.Features
	if len(features) == 0 {
		features = SynthesizeFeatures(m.Title)
		inferred = true
	}

	controls := ControlsFromFeatures(m.Features)
	if len(controls) == 0 {
		controls = InferControls(m.Title)
		inferred = true
	}

	duration := m.Duration
	if strings.TrimSpace(duration) == "" {
		duration = types.DefaultDuration
	}

	return types.TargetGameRecord{
		ID:          id,
		Title:       m.Title,
		Image:       t.NormalizeImage(m.Image),
		Description: TruncateDescription(m.Description, t.descCap),
		Features:    features,
		IsNew:       true,
		Iframe:      t.EmbedMarkup(m.IframeURL, m.URL, m.Title),
		Controls:    controls,
		Category:    MapCategory(m.Category),
		Likes:       m.Likes,
		Favorites:   m.Favorites,
		Duration:    duration,
	}, inferred
}

// MapCategory maps a source category to the catalog vocabulary. Unknown
// categories become "other".
func MapCategory(source string) string {
	if c, ok := categories[strings.TrimSpace(source)]; ok {
		return c
	}
	return "other"
}

// NormalizeImage makes img absolute and adds the sizing query that cover
// images on the cover host require.
func (t *Transformer) NormalizeImage(img string) string {
	img = strings.TrimSpace(img)
	switch {
	case img == "":
		return ""
	case strings.HasPrefix(img, "//"):
		img = "https:" + img
	case strings.HasPrefix(img, "/"):
		img = t.baseOrigin + img
	case !strings.HasPrefix(img, "http://") && !strings.HasPrefix(img, "https://"):
		img = "https://" + t.coverHost + "/" + img
	}

	u, err := url.Parse(img)
	if err != nil {
		return img
	}
	if strings.EqualFold(u.Hostname(), t.coverHost) && strings.Contains(u.Path, "cover") && !strings.Contains(img, "?") {
		img += "?" + coverQuery
	}
	return img
}

// TruncateDescription returns desc unchanged when it fits in limit runes.
// Longer text is cut at the last whitespace at or before limit and ends
// with "..."; a first word longer than limit is cut hard. The kept prefix
// never exceeds limit runes, so a truncated result is at most limit+3 runes
// including the ellipsis. Empty text becomes DefaultDescription.
func TruncateDescription(desc string, limit int) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return DefaultDescription
	}
	if utf8.RuneCountInString(desc) <= limit {
		return desc
	}

	runes := []rune(desc)
	cut := -1
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	if cut < 0 {
		return string(runes[:limit]) + ellipsis
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + ellipsis
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

// EmbedMarkup renders the embeddable content for a record: an iframe when
// an absolute embed URL is known or can be derived from the item slug,
// else a card that opens the game page externally.
func (t *Transformer) EmbedMarkup(embedURL, pageURL, title string) string {
	embedURL, ok := extract.ResolveURL(nil, embedURL)
	if !ok {
		embedURL = ""
		if slug := extract.Slug(pageURL, t.itemPath); slug != "" && t.embedHost != "" {
			embedURL = fmt.Sprintf("https://%s/en_US/%s/index.html", t.embedHost, slug)
		}
	}
	if embedURL != "" {
		return fmt.Sprintf(`<iframe src="%s" style="width: 100%%; height: 100%%;" frameborder="0" allow="gamepad *;"></iframe>`,
			attrEscaper.Replace(embedURL))
	}
	return ExternalCard(pageURL, title)
}

// ExternalCard is the fallback presentation when a game cannot be embedded.
func ExternalCard(pageURL, title string) string {
	if title == "" {
		title = "this game"
	}
	if !extract.AbsoluteURL(pageURL) {
		return fmt.Sprintf(`<div class="external-game" style="width: 100%%; height: 100%%; display: flex; align-items: center; justify-content: center;"><p>%s is not available for embedding.</p></div>`,
			attrEscaper.Replace(title))
	}
	return fmt.Sprintf(`<div class="external-game" style="width: 100%%; height: 100%%; display: flex; align-items: center; justify-content: center;"><a href="%s" target="_blank" rel="noopener noreferrer">Play %s</a></div>`,
		attrEscaper.Replace(pageURL), attrEscaper.Replace(title))
}
