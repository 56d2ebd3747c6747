package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/gameharvest/internal/automation"
	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/discovery"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/storage"
	"github.com/IshaanNene/gameharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingPage = `<html><body>
<div class="game-card"><a href="/game/moto-x3m"><img src="https://imgs.crazygames.com/moto-x3m/cover.png" alt="Moto X3M"></a></div>
<div class="game-card"><a href="/game/gone"><img src="https://imgs.crazygames.com/gone/cover.png" alt="Gone Game"></a></div>
<div class="game-card"><a href="/game/moto-x3m#comments">Moto X3M</a></div>
</body></html>`

const detailPage = `<html><head><title>Moto X3M - Play Online</title></head><body>
<h1>Moto X3M</h1>
<iframe src="https://games.crazygames.com/en_US/moto-x3m/index.html"></iframe>
<div class="game-description">Ride your bike over ramps and loops in this stunt racer.</div>
<span class="likes-count">12K</span>
</body></html>`

const emptyArtifact = "export interface Game {\n  id: number;\n  title: string;\n}\n\n" +
	"export const games: Game[] = [\n];\n\nexport default games;\n"

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/game/moto-x3m", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailPage))
	})
	mux.HandleFunc("/game/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, siteURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Site.ListingURL = siteURL
	cfg.Harvest.PacingMin = 0
	cfg.Harvest.PacingMax = 0
	cfg.Harvest.RatePerSecond = 0
	cfg.Harvest.ItemTimeout = 2 * time.Second
	cfg.Harvest.Concurrency = 2
	cfg.Storage.OutputDir = filepath.Join(dir, "output")
	cfg.Artifact.Path = filepath.Join(dir, "gamesData.ts")
	cfg.Run.Timeout = 30 * time.Second
	return cfg
}

func staticSource(url, body string) PageSource {
	return func(context.Context) (automation.ListingPage, func() error, error) {
		return discovery.NewStaticPage(url, []byte(body)), func() error { return nil }, nil
	}
}

func newTestEngine(cfg *config.Config) *Engine {
	return newListingEngine(cfg, listingPage)
}

func newListingEngine(cfg *config.Config, listing string) *Engine {
	factory := func() (fetcher.Fetcher, error) {
		return fetcher.NewHTTPFetcher(cfg, testLogger)
	}
	return New(cfg, staticSource(cfg.Site.ListingURL, listing), factory, observability.NewMetrics(testLogger), testLogger)
}

func TestRunEndToEnd(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	if err := os.WriteFile(cfg.Artifact.Path, []byte(emptyArtifact), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(cfg)
	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if sum.Discovered != 2 {
		t.Errorf("expected 2 discovered, got %d", sum.Discovered)
	}
	if sum.Harvested != 1 {
		t.Errorf("expected 1 harvested, got %d", sum.Harvested)
	}
	if diff := cmp.Diff([]string{srv.URL + "/game/gone"}, sum.Failed); diff != "" {
		t.Errorf("failed URLs mismatch (-want +got):\n%s", diff)
	}
	if sum.Merged != 2 || sum.Exported != 2 {
		t.Errorf("expected 2 merged and exported, got %d and %d", sum.Merged, sum.Exported)
	}
	if sum.Orphans != 0 {
		t.Errorf("expected no orphans, got %d", sum.Orphans)
	}
	if sum.Patch == nil || sum.Patch.Records != 2 {
		t.Fatalf("expected patch of 2 records, got %+v", sum.Patch)
	}
	if e.GetState() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.GetState())
	}

	data, err := os.ReadFile(cfg.Artifact.Path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`title: "Moto X3M"`, `title: "Gone Game"`, "export default games;"} {
		if !strings.Contains(out, want) {
			t.Errorf("artifact missing %q:\n%s", want, out)
		}
	}

	backup, err := os.ReadFile(cfg.Artifact.Path + ".backup")
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != emptyArtifact {
		t.Error("backup should hold the original artifact")
	}

	for _, name := range []string{storage.HomepageFile, storage.DetailFile, storage.MergedFile, "catalog.json"} {
		if _, err := os.Stat(filepath.Join(cfg.Storage.OutputDir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}

	home, err := e.LoadHomepage()
	if err != nil {
		t.Fatal(err)
	}
	if len(home) != 2 || home[0].Title != "Moto X3M" {
		t.Errorf("unexpected homepage envelope: %+v", home)
	}
	merged, err := e.LoadMerged()
	if err != nil {
		t.Fatal(err)
	}
	if !merged[0].HasDetail || merged[1].HasDetail {
		t.Errorf("expected only the first merged record to carry detail: %+v", merged)
	}
}

const threeCardListing = `<html><body>
<div class="game-card"><a href="/game/moto-x3m"><img src="https://imgs.crazygames.com/moto-x3m/cover.png" alt="Moto X3M"></a></div>
<div class="game-card"><a href="/game/gone"><img src="https://imgs.crazygames.com/gone/cover.png" alt="Gone Game"></a></div>
<div class="game-card"><a href="/game/bubble-pop"><img src="https://imgs.crazygames.com/bubble-pop/cover.png" alt="Bubble Pop"></a></div>
</body></html>`

const bubblePage = `<html><head><title>Bubble Pop - Play Online</title></head><body>
<h1>Bubble Pop</h1>
<iframe src="https://games.crazygames.com/en_US/bubble-pop/index.html"></iframe>
<div class="game-description">Match three bubbles of the same color to clear the board.</div>
<span class="likes-count">3K</span>
</body></html>`

func TestRunPartialDetailFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/game/moto-x3m", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailPage))
	})
	mux.HandleFunc("/game/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/game/bubble-pop", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(bubblePage))
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	cfg := testConfig(t, site.URL)
	if err := os.WriteFile(cfg.Artifact.Path, []byte(emptyArtifact), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newListingEngine(cfg, threeCardListing)
	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if sum.Discovered != 3 || sum.Harvested != 2 {
		t.Errorf("expected 3 discovered and 2 harvested, got %d and %d", sum.Discovered, sum.Harvested)
	}
	if diff := cmp.Diff([]string{site.URL + "/game/gone"}, sum.Failed); diff != "" {
		t.Errorf("failed URLs mismatch (-want +got):\n%s", diff)
	}
	if sum.Merged != 3 {
		t.Errorf("expected 3 merged, got %d", sum.Merged)
	}

	data, err := os.ReadFile(cfg.Artifact.Path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if n := strings.Count(out, "\n  {\n"); n != 3 {
		t.Errorf("expected 3 records in the array, got %d:\n%s", n, out)
	}

	// Records keep homepage order with dense ids.
	order := []string{
		"id: 1,\n    title: \"Moto X3M\"",
		"id: 2,\n    title: \"Gone Game\"",
		"id: 3,\n    title: \"Bubble Pop\"",
	}
	last := -1
	for _, want := range order {
		i := strings.Index(out, want)
		if i < 0 {
			t.Fatalf("artifact missing %q:\n%s", want, out)
		}
		if i < last {
			t.Errorf("%q out of order", want)
		}
		last = i
	}

	backup, err := os.ReadFile(cfg.Artifact.Path + ".backup")
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != emptyArtifact {
		t.Errorf("backup differs from the pre-patch artifact:\n%s", backup)
	}

	merged, err := e.LoadMerged()
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged records, got %d", len(merged))
	}
	gone := merged[1]
	if gone.HasDetail || !merged[0].HasDetail || !merged[2].HasDetail {
		t.Errorf("only the failed record should lack detail: %+v", merged)
	}
	want := types.MergedRecord{
		URL:         gone.URL,
		Title:       "Gone Game",
		Category:    types.DefaultCategory,
		Image:       gone.Image,
		Features:    []string{},
		Tags:        []string{},
		Duration:    types.DefaultDuration,
		CollectedAt: gone.CollectedAt,
	}
	if diff := cmp.Diff(want, gone); diff != "" {
		t.Errorf("failed record defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestRunTwice(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	if err := os.WriteFile(cfg.Artifact.Path, []byte(emptyArtifact), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(cfg)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("expected second run on the same engine to fail")
	}
}

func TestRunCanceled(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newTestEngine(cfg).Run(ctx)
	if err == nil {
		t.Fatal("expected error for canceled run")
	}
	if !IsStopped(err) {
		t.Errorf("expected stop error, got %v", err)
	}
	if sum == nil || sum.Patch != nil {
		t.Errorf("expected summary without a patch, got %+v", sum)
	}
	if _, err := os.Stat(cfg.Artifact.Path); !errors.Is(err, os.ErrNotExist) {
		t.Error("canceled run must not create the artifact")
	}
}

func TestRunPatchFailureKeepsEnvelopes(t *testing.T) {
	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	if err := os.WriteFile(cfg.Artifact.Path, []byte("export const other = [];\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := newTestEngine(cfg).Run(context.Background())
	var pe *types.PatchError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PatchError, got %v", err)
	}
	if !errors.Is(err, types.ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
	if sum.Merged != 2 {
		t.Errorf("earlier stages should still be reported, got %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.OutputDir, storage.MergedFile)); err != nil {
		t.Errorf("merged envelope should survive a patch failure: %v", err)
	}
}

func TestLoadDetailMissing(t *testing.T) {
	cfg := testConfig(t, "https://www.crazygames.com")
	_, err := newTestEngine(cfg).LoadDetail()
	var ie *types.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if !strings.HasSuffix(ie.File, storage.DetailFile) {
		t.Errorf("error should name the detail file, got %s", ie.File)
	}
}

func TestLinksFromHomepage(t *testing.T) {
	home := []types.HomepageRecord{
		{URL: "https://x.com/game/a", Title: "A"},
		{URL: ""},
		{URL: "https://x.com/game/b", Title: "B"},
		{URL: "https://x.com/game/a", Title: "A again"},
	}
	got := LinksFromHomepage(home)
	want := []types.CandidateLink{
		{URL: "https://x.com/game/a", TitleHint: "A"},
		{URL: "https://x.com/game/b", TitleHint: "B"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsSnapshot(t *testing.T) {
	s := &Stats{StartTime: time.Now()}
	s.Discovered.Add(20)
	s.addFailures([]types.Failure{{URL: "https://x.com/game/a"}, {URL: "https://x.com/game/b"}})
	s.Patched.Store(true)

	snap := s.Snapshot()
	if snap["discovered"].(int64) != 20 {
		t.Errorf("expected 20 discovered, got %v", snap["discovered"])
	}
	if snap["failed"].(int64) != 2 {
		t.Errorf("expected 2 failed, got %v", snap["failed"])
	}
	if !snap["patched"].(bool) {
		t.Error("expected patched")
	}
	if len(s.FailedURLs()) != 2 {
		t.Errorf("expected 2 failed URLs, got %v", s.FailedURLs())
	}
}

func TestSummaryPrint(t *testing.T) {
	var b strings.Builder
	(&Summary{Discovered: 3, Failed: []string{"https://x.com/game/a"}}).Print(&b)
	out := b.String()
	for _, want := range []string{"Discovered:   3", "  - https://x.com/game/a", "Patched:      no"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
