package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsCountersIndependent(t *testing.T) {
	a := NewMetrics(testLogger)
	b := NewMetrics(testLogger)

	a.LinksDiscovered.Add(3)
	a.FetchTotal.WithLabelValues("ok").Inc()
	a.FetchTotal.WithLabelValues("status").Inc()
	a.FetchTotal.WithLabelValues("status").Inc()

	if got := testutil.ToFloat64(a.LinksDiscovered); got != 3 {
		t.Errorf("links = %v, want 3", got)
	}
	if got := testutil.ToFloat64(a.FetchTotal.WithLabelValues("status")); got != 2 {
		t.Errorf("status failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.LinksDiscovered); got != 0 {
		t.Errorf("second registry should be independent, got %v", got)
	}
}

func TestMetricsHandlerExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PatchTotal.WithLabelValues("ok").Inc()
	m.ObserveStage("harvest", 2*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`gameharvest_artifact_patch_total{result="ok"} 1`,
		`gameharvest_stage_duration_seconds_count{stage="harvest"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
