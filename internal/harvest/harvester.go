// Package harvest visits candidate item pages concurrently and extracts a
// DetailRecord from each.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Result is the outcome for one link: exactly one of Record or Failure is set.
type Result struct {
	URL     string
	Record  *types.DetailRecord
	Failure *types.Failure
}

// OK reports whether the link produced a record.
func (r Result) OK() bool { return r.Record != nil }

// Harvester runs the detail pass with a bounded worker pool.
type Harvester struct {
	factory     fetcher.Factory
	pacer       *fetcher.Pacer
	rules       *extract.DetailRules
	itemTimeout time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// New creates a Harvester. Each worker gets its own Fetcher from factory.
// metrics may be nil.
func New(cfg *config.Config, factory fetcher.Factory, metrics *observability.Metrics, logger *slog.Logger) *Harvester {
	return &Harvester{
		factory:     factory,
		pacer:       fetcher.NewPacer(cfg.Harvest.RatePerSecond, cfg.Harvest.PacingMin, cfg.Harvest.PacingMax),
		rules:       extract.NewDetailRules(cfg.Site.ItemPath, cfg.Site.CoverHost, cfg.Site.EmbedHost),
		itemTimeout: cfg.Harvest.ItemTimeout,
		metrics:     metrics,
		logger:      logger.With("component", "harvester"),
	}
}

// collector accumulates complete results from concurrent workers.
type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

// HarvestAll fetches every link with concurrency workers and returns one
// Result per link in arrival order. Per-link failures never stop the pass.
// When ctx is done, links not yet started are reported as canceled.
func (h *Harvester) HarvestAll(ctx context.Context, links []types.CandidateLink, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(links) {
		concurrency = len(links)
	}

	h.logger.Info("starting detail harvest", "links", len(links), "workers", concurrency)
	start := time.Now()

	out := &collector{results: make([]Result, 0, len(links))}
	jobs := make(chan types.CandidateLink)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h.worker(ctx, id, jobs, out)
		}(i)
	}

feed:
	for i, link := range links {
		select {
		case <-ctx.Done():
			for _, pending := range links[i:] {
				out.add(canceled(pending, ctx.Err()))
			}
			break feed
		case jobs <- link:
		}
	}
	close(jobs)
	wg.Wait()

	ok := 0
	for _, r := range out.results {
		if r.OK() {
			ok++
		}
	}
	h.logger.Info("detail harvest complete",
		"succeeded", ok,
		"failed", len(out.results)-ok,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out.results
}

func (h *Harvester) worker(ctx context.Context, id int, jobs <-chan types.CandidateLink, out *collector) {
	logger := h.logger.With("worker_id", id)

	f, err := h.factory()
	if err != nil {
		logger.Error("could not create fetcher", "error", err)
		for link := range jobs {
			out.add(failed(link, err, types.FailureNetwork))
		}
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("fetcher close error", "error", err)
		}
	}()

	for link := range jobs {
		if err := ctx.Err(); err != nil {
			out.add(canceled(link, err))
			continue
		}
		if err := h.pacer.Wait(ctx); err != nil {
			out.add(canceled(link, err))
			continue
		}
		out.add(h.harvestOne(ctx, f, link, logger))
	}
}

// harvestOne fetches and extracts a single link within the item timeout.
func (h *Harvester) harvestOne(ctx context.Context, f fetcher.Fetcher, link types.CandidateLink, logger *slog.Logger) Result {
	itemCtx, cancel := context.WithTimeout(ctx, h.itemTimeout)
	defer cancel()

	req, err := types.NewRequest(link.URL)
	if err != nil {
		return failed(link, err, types.FailureParse)
	}
	req.Tag = "detail"

	fetchStart := time.Now()
	resp, err := f.Fetch(itemCtx, req)
	if h.metrics != nil {
		h.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		kind := types.ClassifyFailure(err)
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = types.FailureCanceled
		}
		logger.Warn("detail fetch failed", "url", link.URL, "kind", kind, "error", err)
		h.countFetch(string(kind))
		return failed(link, err, kind)
	}

	doc, err := extract.NewDocument(link.URL, resp.Body)
	if err != nil {
		logger.Warn("detail parse failed", "url", link.URL, "error", err)
		h.countFetch(string(types.FailureParse))
		return failed(link, err, types.FailureParse)
	}

	rec, won := h.rules.Extract(doc)
	rec.URL = link.URL
	if rec.Title == "" {
		rec.Title = link.TitleHint
	}
	if rec.Duration == "" {
		rec.Duration = types.DefaultDuration
	}
	if h.metrics != nil {
		for attr, rule := range won {
			h.metrics.ExtractRules.WithLabelValues(attr, rule).Inc()
		}
	}
	h.countFetch("ok")

	logger.Debug("harvested item",
		"url", link.URL,
		"title", rec.Title,
		"embed_rule", won["embed"],
		"duration", resp.FetchDuration,
	)
	return Result{URL: link.URL, Record: &rec}
}

func (h *Harvester) countFetch(outcome string) {
	if h.metrics != nil {
		h.metrics.FetchTotal.WithLabelValues(outcome).Inc()
	}
}

func failed(link types.CandidateLink, err error, kind types.FailureKind) Result {
	return Result{
		URL: link.URL,
		Failure: &types.Failure{
			URL:    link.URL,
			Reason: err.Error(),
			Kind:   kind,
			At:     time.Now().UTC(),
		},
	}
}

func canceled(link types.CandidateLink, err error) Result {
	if err == nil {
		err = context.Canceled
	}
	return failed(link, fmt.Errorf("not started: %w", err), types.FailureCanceled)
}

// Split separates results into records and failures, preserving order.
func Split(results []Result) ([]types.DetailRecord, []types.Failure) {
	var records []types.DetailRecord
	var failures []types.Failure
	for _, r := range results {
		switch {
		case r.Record != nil:
			records = append(records, *r.Record)
		case r.Failure != nil:
			failures = append(failures, *r.Failure)
		}
	}
	return records, failures
}
