// Package reconcile joins the discovery and detail passes into merged
// records.
package reconcile

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Summary reports what a merge did with its inputs.
type Summary struct {
	Merged  int
	Joined  int
	Orphans []string
}

// Reconciler left-joins homepage records with detail records on the
// canonical URL.
type Reconciler struct {
	itemPath string
	titler   cases.Caser
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Reconciler. metrics may be nil.
func New(itemPath string, metrics *observability.Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		itemPath: itemPath,
		titler:   cases.Title(language.English),
		metrics:  metrics,
		logger:   logger.With("component", "reconciler"),
	}
}

// Merge returns exactly one MergedRecord per homepage record, in homepage
// order. Detail records without a homepage entry are dropped and listed in
// the summary.
func (r *Reconciler) Merge(home []types.HomepageRecord, detail []types.DetailRecord) ([]types.MergedRecord, Summary) {
	byURL := make(map[string]*types.DetailRecord, len(detail))
	for i := range detail {
		key := joinKey(detail[i].URL)
		if _, dup := byURL[key]; dup {
			r.logger.Debug("duplicate detail record ignored", "url", detail[i].URL)
			continue
		}
		byURL[key] = &detail[i]
	}

	used := make(map[string]bool, len(byURL))
	merged := make([]types.MergedRecord, 0, len(home))
	var sum Summary
	for _, h := range home {
		key := joinKey(h.URL)
		d := byURL[key]
		if d != nil {
			used[key] = true
			sum.Joined++
		}
		merged = append(merged, r.mergeOne(h, d))
	}
	sum.Merged = len(merged)

	for i := range detail {
		if key := joinKey(detail[i].URL); !used[key] {
			sum.Orphans = append(sum.Orphans, detail[i].URL)
			used[key] = true
		}
	}

	if r.metrics != nil {
		r.metrics.RecordsMerged.Add(float64(sum.Merged))
		r.metrics.OrphansDropped.Add(float64(len(sum.Orphans)))
	}
	r.logger.Info("merge complete",
		"merged", sum.Merged,
		"with_detail", sum.Joined,
		"without_detail", sum.Merged-sum.Joined,
		"orphans_dropped", len(sum.Orphans),
	)
	return merged, sum
}

// mergeOne applies field precedence: category from detail when present,
// cover image from homepage, everything else from detail or a default.
func (r *Reconciler) mergeOne(h types.HomepageRecord, d *types.DetailRecord) types.MergedRecord {
	m := types.MergedRecord{
		URL:         h.URL,
		Title:       h.Title,
		Category:    firstNonEmpty(h.Category, types.DefaultCategory),
		Image:       h.Image,
		Duration:    types.DefaultDuration,
		Features:    []string{},
		Tags:        []string{},
		CollectedAt: h.CollectedAt,
	}

	if d != nil {
		m.HasDetail = true
		m.IframeURL = d.IframeURL
		m.Description = d.Description
		m.Favorites = d.Favorites
		m.Likes = d.Likes
		if len(d.Features) > 0 {
			m.Features = d.Features
		}
		if len(d.Tags) > 0 {
			m.Tags = d.Tags
		}
		if d.Duration != "" {
			m.Duration = d.Duration
		}
		if d.Category != "" {
			m.Category = d.Category
		}
		if m.Image == "" {
			m.Image = d.Image
		}
		if m.Title == "" {
			m.Title = d.Title
		}
	}

	if strings.TrimSpace(m.Title) == "" {
		m.Title = r.slugTitle(h.URL)
	}
	return m
}

// slugTitle derives a display title from the URL so every merged record
// has one.
func (r *Reconciler) slugTitle(rawURL string) string {
	slug := extract.Slug(rawURL, r.itemPath)
	if slug == "" {
		if u, err := url.Parse(rawURL); err == nil {
			slug = path.Base(strings.TrimRight(u.Path, "/"))
		}
	}
	if t := extract.SlugTitle(r.titler, slug); t != "" {
		return t
	}
	return rawURL
}

// joinKey canonicalizes u so records written by older runs with fragments
// or trailing slashes still join.
func joinKey(u string) string {
	if c, err := extract.Canonicalize(u); err == nil {
		return c
	}
	return u
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
