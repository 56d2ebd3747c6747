package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/gameharvest/internal/automation"
	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Collector enumerates item links on a listing page.
type Collector struct {
	itemPath  string
	maxStalls int
	maxGrow   int
	title     extract.Chain[*extract.Card, string]
	image     extract.Chain[*extract.Card, string]
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewCollector creates a Collector. metrics may be nil.
func NewCollector(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Collector {
	maxStalls := cfg.Discovery.MaxStalls
	if maxStalls < 1 {
		maxStalls = 2
	}
	return &Collector{
		itemPath:  cfg.Site.ItemPath,
		maxStalls: maxStalls,
		maxGrow:   cfg.Discovery.MaxGrowAttempts,
		title:     extract.NewCardTitle(cfg.Site.ItemPath),
		image:     extract.NewCardImage(cfg.Site.CoverHost),
		metrics:   metrics,
		logger:    logger.With("component", "discovery"),
	}
}

// Discover grows page until targetCount unique links are known, growth
// stalls for maxStalls consecutive attempts, or the page cannot grow.
// Links are returned in discovery order, truncated to targetCount.
func (c *Collector) Discover(ctx context.Context, page automation.ListingPage, targetCount int) ([]types.CandidateLink, error) {
	set := newLinkSet()

	if _, err := c.scan(ctx, page, set); err != nil {
		return set.first(targetCount), err
	}

	stalls := 0
	for grows := 0; set.len() < targetCount; grows++ {
		if c.maxGrow > 0 && grows >= c.maxGrow {
			c.logger.Info("growth attempt limit reached", "attempts", grows, "links", set.len())
			break
		}
		if err := ctx.Err(); err != nil {
			return set.first(targetCount), err
		}

		err := page.Grow(ctx)
		if c.metrics != nil {
			c.metrics.GrowAttempts.Inc()
		}
		if errors.Is(err, automation.ErrNoGrowth) {
			c.logger.Debug("listing page cannot grow", "links", set.len())
			break
		}
		if err != nil {
			return set.first(targetCount), fmt.Errorf("grow listing page: %w", err)
		}

		added, err := c.scan(ctx, page, set)
		if err != nil {
			return set.first(targetCount), err
		}
		if added > 0 {
			stalls = 0
			continue
		}
		stalls++
		c.logger.Debug("growth added no links", "stalls", stalls, "links", set.len())
		if stalls >= c.maxStalls {
			c.logger.Info("discovery stalled", "stalls", stalls, "links", set.len())
			break
		}
	}

	links := set.first(targetCount)
	if c.metrics != nil {
		c.metrics.LinksDiscovered.Add(float64(len(links)))
	}
	c.logger.Info("discovery complete", "links", len(links), "target", targetCount)
	return links, nil
}

// scan adds every item link currently on the page to set and returns how
// many were new.
func (c *Collector) scan(ctx context.Context, page automation.ListingPage, set *linkSet) (int, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return 0, fmt.Errorf("read listing page: %w", err)
	}
	doc, err := extract.NewDocument(page.URL(), []byte(html))
	if err != nil {
		return 0, err
	}

	added := 0
	now := time.Now().UTC()
	for _, card := range extract.ScanItemLinks(doc, c.itemPath) {
		if set.add(types.CandidateLink{URL: card.URL, TitleHint: card.TitleHint(), DiscoveredAt: now}) {
			added++
		}
	}
	return added, nil
}

// Collect runs Discover and builds one HomepageRecord per link from the
// page's final state.
func (c *Collector) Collect(ctx context.Context, page automation.ListingPage, targetCount int) ([]types.HomepageRecord, error) {
	links, err := c.Discover(ctx, page, targetCount)
	if err != nil {
		return nil, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read listing page: %w", err)
	}
	doc, err := extract.NewDocument(page.URL(), []byte(html))
	if err != nil {
		return nil, err
	}
	return c.BuildHomepageRecords(doc, links), nil
}

// BuildHomepageRecords produces one HomepageRecord per link, reading title
// and cover from the link's card in doc when it is still present.
func (c *Collector) BuildHomepageRecords(doc *extract.Document, links []types.CandidateLink) []types.HomepageRecord {
	cards := make(map[string]extract.Card)
	for _, card := range extract.ScanItemLinks(doc, c.itemPath) {
		cards[card.URL] = card
	}

	records := make([]types.HomepageRecord, 0, len(links))
	for _, link := range links {
		card, ok := cards[link.URL]
		if !ok {
			// Scrolled out of a virtualized list; only URL-derived rules apply.
			card = extract.Card{Doc: doc, Anchor: doc.Query.Find("a[data-gameharvest-missing]"), URL: link.URL}
		}
		card.Hint = link.TitleHint

		title, _, _ := c.title.Extract(&card)
		if title == "" {
			title = extract.Slug(link.URL, c.itemPath)
		}
		image, rule, _ := c.image.Extract(&card)
		if c.metrics != nil && rule != "" {
			c.metrics.ExtractRules.WithLabelValues("card_image", rule).Inc()
		}

		records = append(records, types.HomepageRecord{
			URL:         link.URL,
			Category:    extract.CategoryFromURL(link.URL),
			CollectedAt: link.DiscoveredAt,
			Image:       image,
			Title:       title,
		})
	}
	return records
}

// linkSet is an insertion-ordered set of links keyed by canonical URL.
type linkSet struct {
	seen  map[string]bool
	links []types.CandidateLink
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]bool)}
}

func (s *linkSet) add(l types.CandidateLink) bool {
	if s.seen[l.URL] {
		return false
	}
	s.seen[l.URL] = true
	s.links = append(s.links, l)
	return true
}

func (s *linkSet) len() int { return len(s.links) }

func (s *linkSet) first(n int) []types.CandidateLink {
	if n >= 0 && len(s.links) > n {
		return append([]types.CandidateLink(nil), s.links[:n]...)
	}
	return append([]types.CandidateLink(nil), s.links...)
}
