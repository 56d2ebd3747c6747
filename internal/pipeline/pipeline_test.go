package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(nil, testLogger)
	p.Use(&TrimMiddleware{})

	rec := &types.DetailRecord{
		URL:      "https://www.crazygames.com/game/moto",
		Title:    "  Moto X3M  ",
		Duration: " 5 min ",
		Features: []string{" Arrow keys = drive "},
	}

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Moto X3M" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Duration != "5 min" {
		t.Errorf("expected trimmed duration, got %q", result.Duration)
	}
	if result.Features[0] != "Arrow keys = drive" {
		t.Errorf("expected trimmed feature, got %q", result.Features[0])
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	result, err := m.Process(&types.DetailRecord{URL: "https://www.crazygames.com/game/a"})
	if err != nil || result == nil {
		t.Error("record with URL should pass")
	}

	result, _ = m.Process(&types.DetailRecord{Title: "no url"})
	if result != nil {
		t.Error("record without URL should be dropped (nil)")
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := &types.DetailRecord{
		Description: `<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`,
		Tags:        []string{"<span>Car</span>"},
	}

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Description != "Hello World & link" {
		t.Errorf("expected 'Hello World & link', got %q", result.Description)
	}
	if result.Tags[0] != "Car" {
		t.Errorf("expected tag markup stripped, got %q", result.Tags[0])
	}
}

func TestHTMLSanitizeKeepsPlainText(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	tests := []struct {
		name string
		in   string
	}{
		{"angle brackets", "Press < to turn left and > to turn right."},
		{"encoded entity text", "Score 5 &amp;lt; 10"},
		{"comparison", "Reach level 3<5 before the timer ends"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &types.DetailRecord{
				Description: tt.in,
				Features:    []string{tt.in},
			}
			result, err := m.Process(rec)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if result.Description != tt.in {
				t.Errorf("description changed: got %q, want %q", result.Description, tt.in)
			}
			if result.Features[0] != tt.in {
				t.Errorf("feature changed: got %q, want %q", result.Features[0], tt.in)
			}
		})
	}
}

func TestListCleanMiddleware(t *testing.T) {
	m := &ListCleanMiddleware{Max: 3}
	rec := &types.DetailRecord{
		Features: []string{"Online", "", "online", "Free", "3D", "Fast"},
		Tags:     []string{"Car", "Car"},
	}

	result, _ := m.Process(rec)
	if diff := cmp.Diff([]string{"Online", "Free", "3D"}, result.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Car"}, result.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultPipelineDropsDuplicates(t *testing.T) {
	metrics := observability.NewMetrics(testLogger)
	p := Default(10, metrics, testLogger)

	records := []types.DetailRecord{
		{URL: "https://www.crazygames.com/game/a", Title: " A "},
		{URL: "https://www.crazygames.com/game/a#comments", Title: "A again"},
		{URL: "", Title: "orphan"},
		{URL: "https://www.crazygames.com/game/b", Title: "<b>B</b>"},
	}

	out := p.ProcessAll(records)
	var titles []string
	for _, r := range out {
		titles = append(titles, r.Title)
	}
	if diff := cmp.Diff([]string{"A", "B"}, titles); diff != "" {
		t.Errorf("kept records mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("dedup")); got != 1 {
		t.Errorf("dedup drops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("required_fields")); got != 1 {
		t.Errorf("required drops = %v, want 1", got)
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }
func (failingMiddleware) Process(*types.DetailRecord) (*types.DetailRecord, error) {
	return nil, errors.New("boom")
}

func TestPipelineWrapsErrors(t *testing.T) {
	p := New(nil, testLogger)
	p.Use(failingMiddleware{})

	_, err := p.Process(&types.DetailRecord{URL: "https://www.crazygames.com/game/a"})
	var pe *types.PipelineError
	if !errors.As(err, &pe) || pe.Stage != "failing" {
		t.Fatalf("expected PipelineError from failing stage, got %v", err)
	}
	if out := p.ProcessAll([]types.DetailRecord{{URL: "x"}}); len(out) != 0 {
		t.Errorf("erroring records should be dropped, got %d", len(out))
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
}
