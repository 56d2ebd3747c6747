package transform

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestTransformer() *Transformer {
	return New(config.DefaultConfig(), testLogger)
}

func TestTruncateDescriptionRaceExample(t *testing.T) {
	in := "Race fast cars around twelve unique tracks while customizing your vehicle with paint jobs decals and performance upgrades across five championship seasons"
	want := "Race fast cars around twelve unique tracks while customizing your vehicle with paint jobs decals and..."
	if got := TruncateDescription(in, 100); got != want {
		t.Errorf("TruncateDescription:\n got %q\nwant %q", got, want)
	}
}

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"empty", "", 100, DefaultDescription},
		{"blank", "   ", 100, DefaultDescription},
		{"under cap", "Short and sweet.", 100, "Short and sweet."},
		{"exactly cap", "abcde fghij", 11, "abcde fghij"},
		{"cut at last space", "alpha beta gamma delta", 13, "alpha beta..."},
		{"space right after cap", "alpha beta gamma", 10, "alpha beta..."},
		{"single long word", "Supercalifragilistic", 10, "Supercalif..."},
		{"multibyte", "ééééé ééééé ééééé", 12, "ééééé ééééé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateDescription(tt.in, tt.limit); got != tt.want {
				t.Errorf("TruncateDescription(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncateDescriptionNeverSplitsWords(t *testing.T) {
	text := "Build towers, defend lanes and upgrade heroes through forty hand crafted levels with bosses, secrets and daily challenges for everyone"
	words := map[string]bool{}
	for _, w := range strings.Fields(text) {
		words[w] = true
	}

	for limit := 10; limit < utf8.RuneCountInString(text); limit++ {
		got := TruncateDescription(text, limit)
		prefix := strings.TrimSuffix(got, ellipsis)
		if prefix == got {
			t.Fatalf("limit %d: expected ellipsis, got %q", limit, got)
		}
		if utf8.RuneCountInString(prefix) > limit {
			t.Errorf("limit %d: prefix %q longer than cap", limit, prefix)
		}
		if n := utf8.RuneCountInString(got); n > limit+len(ellipsis) {
			t.Errorf("limit %d: result has %d runes, want at most %d", limit, n, limit+len(ellipsis))
		}
		fields := strings.Fields(prefix)
		if last := fields[len(fields)-1]; !words[last] {
			t.Errorf("limit %d: last word %q was split", limit, last)
		}
		if r, _ := utf8.DecodeLastRuneInString(prefix); unicode.IsSpace(r) {
			t.Errorf("limit %d: trailing space before ellipsis", limit)
		}
	}
}

func TestMapCategory(t *testing.T) {
	tests := map[string]string{
		"Puzzle": "puzzle",
		"Rhythm": "other",
		"Racing": "racing",
		".io":    "io",
		"IO":     "io",
		"puzzle": "other",
		"":       "other",
		"Other":  "other",
	}
	for in, want := range tests {
		if got := MapCategory(in); got != want {
			t.Errorf("MapCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeImage(t *testing.T) {
	tr := newTestTransformer()
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/images/moto.png", "https://www.crazygames.com/images/moto.png"},
		{"moto-x3m/cover.png", "https://imgs.crazygames.com/moto-x3m/cover.png?" + coverQuery},
		{"//imgs.crazygames.com/a/cover-16x9.png", "https://imgs.crazygames.com/a/cover-16x9.png?" + coverQuery},
		{"https://imgs.crazygames.com/a/cover.png?w=1", "https://imgs.crazygames.com/a/cover.png?w=1"},
		{"https://imgs.crazygames.com/a/thumb.png", "https://imgs.crazygames.com/a/thumb.png"},
		{"https://cdn.example.com/cover.png", "https://cdn.example.com/cover.png"},
	}
	for _, tt := range tests {
		if got := tr.NormalizeImage(tt.in); got != tt.want {
			t.Errorf("NormalizeImage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmbedMarkup(t *testing.T) {
	tr := newTestTransformer()

	got := tr.EmbedMarkup("https://games.crazygames.com/en_US/moto/index.html", "", "Moto")
	want := `<iframe src="https://games.crazygames.com/en_US/moto/index.html" style="width: 100%; height: 100%;" frameborder="0" allow="gamepad *;"></iframe>`
	if got != want {
		t.Errorf("direct embed:\n got %s\nwant %s", got, want)
	}

	got = tr.EmbedMarkup("", "https://www.crazygames.com/game/bubble-pop", "Bubble Pop")
	if !strings.Contains(got, `src="https://games.crazygames.com/en_US/bubble-pop/index.html"`) {
		t.Errorf("slug embed not derived: %s", got)
	}

	got = tr.EmbedMarkup("javascript:alert(1)", "https://example.com/play/x", `Say "hi"`)
	if strings.Contains(got, "<iframe") {
		t.Errorf("unusable embed should not produce an iframe: %s", got)
	}
	if !strings.Contains(got, `href="https://example.com/play/x"`) || !strings.Contains(got, "Say &quot;hi&quot;") {
		t.Errorf("external card missing link or escaping: %s", got)
	}
}

func TestInferControlsAndFeatures(t *testing.T) {
	if diff := cmp.Diff([]types.Control{{Key: "Arrow Keys", Action: "STEER"}, {Key: "Space", Action: "BRAKE"}, {Key: "Shift", Action: "NITRO"}}, InferControls("Drift Racing 3")); diff != "" {
		t.Errorf("racing controls (-want +got):\n%s", diff)
	}
	if got := InferControls("Gun Mayhem")[1]; got.Action != "SHOOT" {
		t.Errorf("expected shooting scheme, got %+v", got)
	}
	if got := InferControls("Bubble Pop")[0]; got.Action != "INTERACT" {
		t.Errorf("expected generic scheme, got %+v", got)
	}

	want := []string{"Online", "Free", "Multiplayer", "3D Graphics", "Racing"}
	if diff := cmp.Diff(want, SynthesizeFeatures("Battle Cars 3D")); diff != "" {
		t.Errorf("features (-want +got):\n%s", diff)
	}
}

func TestTransformKeepsExtractedValues(t *testing.T) {
	merged := []types.MergedRecord{
		{
			URL:         "https://www.crazygames.com/game/car-rush",
			Title:       "Car Rush",
			Category:    "Puzzle",
			Image:       "https://imgs.crazygames.com/car-rush/cover.png",
			IframeURL:   "https://games.crazygames.com/en_US/car-rush/index.html",
			Description: "Dodge traffic.",
			Features:    []string{"W = accelerate", "S = brake"},
			Likes:       120,
			Favorites:   30,
			Duration:    "3 min",
			HasDetail:   true,
		},
		{
			URL:      "https://www.crazygames.com/game/rhythm-tap",
			Title:    "Rhythm Tap",
			Category: "Rhythm",
		},
	}

	out := newTestTransformer().Transform(merged)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}

	first := out[0]
	if first.ID != 1 || out[1].ID != 2 {
		t.Errorf("ids = %d,%d, want 1,2", first.ID, out[1].ID)
	}
	if diff := cmp.Diff([]string{"W = accelerate", "S = brake"}, first.Features); diff != "" {
		t.Errorf("extracted features replaced (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]types.Control{{Key: "W", Action: "ACCELERATE"}, {Key: "S", Action: "BRAKE"}}, first.Controls); diff != "" {
		t.Errorf("extracted controls replaced (-want +got):\n%s", diff)
	}
	if first.Category != "puzzle" || first.Duration != "3 min" || !first.IsNew {
		t.Errorf("unexpected first record %+v", first)
	}

	second := out[1]
	if second.Category != "other" {
		t.Errorf("category = %q, want other", second.Category)
	}
	if second.Description != DefaultDescription {
		t.Errorf("description = %q, want default", second.Description)
	}
	if second.Duration != types.DefaultDuration {
		t.Errorf("duration = %q, want default", second.Duration)
	}
	if diff := cmp.Diff([]string{"Online", "Free"}, second.Features); diff != "" {
		t.Errorf("synthesized features (-want +got):\n%s", diff)
	}
}

func TestTransformIDOffset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transform.IDOffset = 40
	out := New(cfg, testLogger).Transform([]types.MergedRecord{{Title: "A"}, {Title: "B"}, {Title: "C"}})
	for i, r := range out {
		if r.ID != 40+i {
			t.Errorf("record %d id = %d, want %d", i, r.ID, 40+i)
		}
	}
}
