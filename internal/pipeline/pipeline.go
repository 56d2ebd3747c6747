package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Middleware processes a harvested record and returns the (possibly
// modified) record. Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.DetailRecord) (*types.DetailRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// New creates a new Pipeline. metrics may be nil.
func New(metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		metrics: metrics,
		logger:  logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline applied to every detail pass: trim, strip
// markup, tidy list fields, then drop duplicates.
func Default(maxListItems int, metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	p := New(metrics, logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&ListCleanMiddleware{Max: maxListItems})
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				URL:   current.URL,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "url", rec.URL)
			if p.metrics != nil {
				p.metrics.RecordsDropped.WithLabelValues(mw.Name()).Inc()
			}
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every record through the pipeline and returns the
// survivors in order. Records that error are logged and dropped.
func (p *Pipeline) ProcessAll(records []types.DetailRecord) []types.DetailRecord {
	out := make([]types.DetailRecord, 0, len(records))
	for i := range records {
		rec := records[i]
		processed, err := p.Process(&rec)
		if err != nil {
			p.logger.Warn("pipeline dropped record", "url", rec.URL, "error", err)
			continue
		}
		if processed != nil {
			out = append(out, *processed)
		}
	}
	if dropped := len(records) - len(out); dropped > 0 {
		p.logger.Info("pipeline dropped records", "dropped", dropped, "kept", len(out))
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops records without a URL.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	if rec.URL == "" {
		return nil, nil
	}
	return rec, nil
}

// DedupMiddleware drops records whose canonical URL was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	key, err := extract.Canonicalize(rec.URL)
	if err != nil {
		key = rec.URL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	for _, s := range textFields(rec) {
		*s = strings.TrimSpace(*s)
	}
	for i := range rec.Features {
		rec.Features[i] = strings.TrimSpace(rec.Features[i])
	}
	for i := range rec.Tags {
		rec.Tags[i] = strings.TrimSpace(rec.Tags[i])
	}
	return rec, nil
}

// textFields returns the free-text fields of rec. URLs are not included.
func textFields(rec *types.DetailRecord) []*string {
	return []*string{&rec.Title, &rec.Description, &rec.Duration, &rec.Category}
}
