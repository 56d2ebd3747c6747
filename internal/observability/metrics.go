package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gameharvest"

// Metrics holds the Prometheus collectors for one harvest run. Each
// instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	LinksDiscovered prometheus.Counter
	GrowAttempts    prometheus.Counter
	FetchTotal      *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ExtractRules    *prometheus.CounterVec
	RecordsMerged   prometheus.Counter
	OrphansDropped  prometheus.Counter
	RecordsDropped  *prometheus.CounterVec
	PatchTotal      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LinksDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "discovery",
			Name: "links_total", Help: "Unique item links discovered on the listing page",
		}),
		GrowAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "discovery",
			Name: "grow_attempts_total", Help: "Listing page growth attempts",
		}),
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest",
			Name: "fetch_total", Help: "Detail page fetches by outcome",
		}, []string{"outcome"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "harvest",
			Name: "fetch_duration_seconds", Help: "Detail page fetch duration",
			Buckets: prometheus.DefBuckets,
		}),
		ExtractRules: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "extract",
			Name: "rule_wins_total", Help: "Extraction rules that produced an attribute",
		}, []string{"attribute", "rule"}),
		RecordsMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "records_total", Help: "Merged records produced",
		}),
		OrphansDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "orphans_dropped_total", Help: "Detail records without a homepage entry",
		}),
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline",
			Name: "records_dropped_total", Help: "Harvested records dropped by middleware",
		}, []string{"middleware"}),
		PatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "artifact",
			Name: "patch_total", Help: "Artifact patch attempts by result",
		}, []string{"result"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds", Help: "Pipeline stage duration",
			Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		logger: logger.With("component", "metrics"),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics server until ctx is done.
func (m *Metrics) Serve(ctx context.Context, port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
