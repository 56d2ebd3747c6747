// Package engine sequences the harvest stages and persists the interchange
// files between them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/gameharvest/internal/artifact"
	"github.com/IshaanNene/gameharvest/internal/automation"
	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/discovery"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
	"github.com/IshaanNene/gameharvest/internal/harvest"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/pipeline"
	"github.com/IshaanNene/gameharvest/internal/reconcile"
	"github.com/IshaanNene/gameharvest/internal/storage"
	"github.com/IshaanNene/gameharvest/internal/transform"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// maxListItems caps features and tags kept per detail record.
const maxListItems = 20

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks what a run has done so far.
type Stats struct {
	Discovered atomic.Int64
	Harvested  atomic.Int64
	Failed     atomic.Int64
	Dropped    atomic.Int64
	Merged     atomic.Int64
	Orphans    atomic.Int64
	Exported   atomic.Int64
	Patched    atomic.Bool
	StartTime  time.Time

	mu         sync.RWMutex
	failedURLs []string
}

func (s *Stats) addFailures(failures []types.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range failures {
		s.failedURLs = append(s.failedURLs, f.URL)
	}
	s.Failed.Add(int64(len(failures)))
}

// FailedURLs returns the links the detail pass gave up on.
func (s *Stats) FailedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.failedURLs...)
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"discovered": s.Discovered.Load(),
		"harvested":  s.Harvested.Load(),
		"failed":     s.Failed.Load(),
		"dropped":    s.Dropped.Load(),
		"merged":     s.Merged.Load(),
		"orphans":    s.Orphans.Load(),
		"exported":   s.Exported.Load(),
		"patched":    s.Patched.Load(),
		"elapsed":    time.Since(s.StartTime).Round(time.Millisecond).String(),
	}
}

// PageSource opens the listing page for the discovery pass. The returned
// release function is called once discovery is finished with the page.
type PageSource func(ctx context.Context) (automation.ListingPage, func() error, error)

// Engine runs discovery, detail harvest, reconciliation, transformation and
// patching in strict sequence.
type Engine struct {
	cfg         *config.Config
	pages       PageSource
	collector   *discovery.Collector
	harvester   *harvest.Harvester
	pipeline    *pipeline.Pipeline
	reconciler  *reconcile.Reconciler
	transformer *transform.Transformer
	patcher     *artifact.Patcher
	metrics     *observability.Metrics
	logger      *slog.Logger

	state atomic.Int32
	stats *Stats
}

// New creates an Engine. factory supplies detail-pass fetchers; metrics
// may be nil.
func New(cfg *config.Config, pages PageSource, factory fetcher.Factory, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		pages:       pages,
		collector:   discovery.NewCollector(cfg, metrics, logger),
		harvester:   harvest.New(cfg, factory, metrics, logger),
		pipeline:    pipeline.Default(maxListItems, metrics, logger),
		reconciler:  reconcile.New(cfg.Site.ItemPath, metrics, logger),
		transformer: transform.New(cfg, logger),
		patcher:     artifact.NewPatcher(cfg.Artifact.Segment, cfg.Artifact.TypeName, metrics, logger),
		metrics:     metrics,
		logger:      logger.With("component", "engine"),
		stats:       &Stats{StartTime: time.Now()},
	}
}

// Stats returns the current run statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// Run executes every stage under cfg.Run.Timeout. A failing stage stops
// the run; files written by earlier stages are left in place.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("engine is in state %s, cannot run", e.GetState())
	}
	defer e.state.Store(int32(StateStopped))

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Run.Timeout)
	defer cancel()

	e.stats.StartTime = time.Now()
	e.logger.Info("run starting",
		"target", e.cfg.Discovery.TargetCount,
		"concurrency", e.cfg.Harvest.Concurrency,
		"artifact", e.cfg.Artifact.Path,
	)

	home, err := e.Discover(ctx)
	if err != nil {
		return e.summary(nil), err
	}
	if err := e.checkpoint(ctx, "discover"); err != nil {
		return e.summary(nil), err
	}

	detail, _, err := e.Harvest(ctx, home)
	if err != nil {
		return e.summary(nil), err
	}
	if err := e.checkpoint(ctx, "harvest"); err != nil {
		return e.summary(nil), err
	}

	merged, err := e.Merge(home, detail)
	if err != nil {
		return e.summary(nil), err
	}

	records, err := e.Export(merged)
	if err != nil {
		return e.summary(nil), err
	}
	if err := e.checkpoint(ctx, "transform"); err != nil {
		return e.summary(nil), err
	}

	res, err := e.Patch(ctx, records)
	sum := e.summary(res)
	if err != nil {
		return sum, err
	}

	e.logger.Info("run complete", "stats", e.stats.Snapshot())
	return sum, nil
}

// checkpoint stops the run between stages once ctx is done.
func (e *Engine) checkpoint(ctx context.Context, after string) error {
	if err := ctx.Err(); err != nil {
		e.logger.Warn("run stopped between stages", "after", after, "error", err)
		return fmt.Errorf("%w after %s: %w", types.ErrRunStopped, after, err)
	}
	return nil
}

// Discover collects homepage records from the listing page and writes the
// homepage envelope.
func (e *Engine) Discover(ctx context.Context) ([]types.HomepageRecord, error) {
	defer e.observe("discover", time.Now())

	page, release, err := e.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("open listing page: %w", err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			e.logger.Warn("listing page release failed", "error", rerr)
		}
	}()

	home, err := e.collector.Collect(ctx, page, e.cfg.Discovery.TargetCount)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	e.stats.Discovered.Store(int64(len(home)))

	if err := storage.SaveEnvelope(e.path(storage.HomepageFile), types.NewEnvelope(types.EnvelopeHomepage, home)); err != nil {
		return nil, err
	}
	e.logger.Info("homepage records saved", "count", len(home), "path", e.path(storage.HomepageFile))
	return home, nil
}

// Harvest visits every homepage record's page, cleans the extracted
// records and writes the detail envelope with its failures.
func (e *Engine) Harvest(ctx context.Context, home []types.HomepageRecord) ([]types.DetailRecord, []types.Failure, error) {
	defer e.observe("harvest", time.Now())

	results := e.harvester.HarvestAll(ctx, LinksFromHomepage(home), e.cfg.Harvest.Concurrency)
	records, failures := harvest.Split(results)

	cleaned := e.pipeline.ProcessAll(records)
	e.stats.Harvested.Store(int64(len(cleaned)))
	e.stats.Dropped.Add(int64(len(records) - len(cleaned)))
	e.stats.addFailures(failures)

	for _, f := range failures {
		e.logger.Warn("detail harvest failed", "url", f.URL, "kind", f.Kind, "reason", f.Reason)
	}

	env := types.NewEnvelope(types.EnvelopeDetail, cleaned)
	env.Failures = failures
	if err := storage.SaveEnvelope(e.path(storage.DetailFile), env); err != nil {
		return nil, nil, err
	}
	e.logger.Info("detail records saved",
		"succeeded", len(cleaned),
		"failed", len(failures),
		"path", e.path(storage.DetailFile),
	)
	return cleaned, failures, nil
}

// Merge left-joins the two passes and writes the merged envelope.
func (e *Engine) Merge(home []types.HomepageRecord, detail []types.DetailRecord) ([]types.MergedRecord, error) {
	defer e.observe("merge", time.Now())

	merged, sum := e.reconciler.Merge(home, detail)
	e.stats.Merged.Store(int64(sum.Merged))
	e.stats.Orphans.Store(int64(len(sum.Orphans)))

	if err := storage.SaveEnvelope(e.path(storage.MergedFile), types.NewEnvelope(types.EnvelopeMerged, merged)); err != nil {
		return nil, err
	}
	return merged, nil
}

// Export maps merged records to catalog records and hands them to the
// configured storage backend.
func (e *Engine) Export(merged []types.MergedRecord) ([]types.TargetGameRecord, error) {
	defer e.observe("transform", time.Now())

	records := e.transformer.Transform(merged)

	sink, err := storage.New(&e.cfg.Storage, e.logger)
	if err != nil {
		return nil, err
	}
	if err := sink.Store(records); err != nil {
		_ = sink.Close()
		return nil, err
	}
	if err := sink.Close(); err != nil {
		return nil, err
	}
	e.stats.Exported.Store(int64(len(records)))
	e.logger.Info("catalog exported", "backend", sink.Name(), "records", len(records))
	return records, nil
}

// Patch splices records into the configured artifact.
func (e *Engine) Patch(ctx context.Context, records []types.TargetGameRecord) (*artifact.PatchResult, error) {
	defer e.observe("patch", time.Now())

	res, err := e.patcher.PatchFile(ctx, e.cfg.Artifact.Path, records)
	if err != nil {
		return nil, err
	}
	e.stats.Patched.Store(true)
	return res, nil
}

// RestoreArtifact puts the artifact's backup copy back in place.
func (e *Engine) RestoreArtifact() error {
	if err := e.patcher.Restore(e.cfg.Artifact.Path); err != nil {
		return err
	}
	e.logger.Info("artifact restored from backup", "path", e.cfg.Artifact.Path)
	return nil
}

// LoadHomepage reads the homepage envelope from the output directory.
func (e *Engine) LoadHomepage() ([]types.HomepageRecord, error) {
	env, err := storage.LoadEnvelope[types.HomepageRecord](e.path(storage.HomepageFile), types.EnvelopeHomepage)
	if err != nil {
		return nil, err
	}
	return env.Games, nil
}

// LoadDetail reads the detail envelope from the output directory.
func (e *Engine) LoadDetail() ([]types.DetailRecord, error) {
	env, err := storage.LoadEnvelope[types.DetailRecord](e.path(storage.DetailFile), types.EnvelopeDetail)
	if err != nil {
		return nil, err
	}
	return env.Games, nil
}

// LoadMerged reads the merged envelope from the output directory.
func (e *Engine) LoadMerged() ([]types.MergedRecord, error) {
	env, err := storage.LoadEnvelope[types.MergedRecord](e.path(storage.MergedFile), types.EnvelopeMerged)
	if err != nil {
		return nil, err
	}
	return env.Games, nil
}

// LinksFromHomepage turns homepage records back into harvest candidates,
// keeping the first record per URL.
func LinksFromHomepage(home []types.HomepageRecord) []types.CandidateLink {
	seen := make(map[string]bool, len(home))
	links := make([]types.CandidateLink, 0, len(home))
	for _, h := range home {
		if h.URL == "" || seen[h.URL] {
			continue
		}
		seen[h.URL] = true
		links = append(links, types.CandidateLink{URL: h.URL, TitleHint: h.Title, DiscoveredAt: h.CollectedAt})
	}
	return links
}

func (e *Engine) path(name string) string {
	return filepath.Join(e.cfg.Storage.OutputDir, name)
}

func (e *Engine) observe(stage string, start time.Time) {
	d := time.Since(start)
	if e.metrics != nil {
		e.metrics.ObserveStage(stage, d)
	}
	e.logger.Debug("stage finished", "stage", stage, "elapsed", d.Round(time.Millisecond))
}

// IsStopped reports whether err came from a run cut short by its context.
func IsStopped(err error) bool {
	return errors.Is(err, types.ErrRunStopped) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
