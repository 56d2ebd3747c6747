package extract

import (
	"net/url"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.crazygames.com/game/moto-x3m", "https://www.crazygames.com/game/moto-x3m"},
		{"https://www.crazygames.com/game/moto-x3m#comments", "https://www.crazygames.com/game/moto-x3m"},
		{"HTTPS://WWW.CrazyGames.com:443/game/moto-x3m/", "https://www.crazygames.com/game/moto-x3m"},
		{"http://example.com:80", "http://example.com/"},
		{"https://example.com/game/a?z=1&a=2", "https://example.com/game/a?a=2&z=1"},
	}

	for _, tt := range tests {
		got, err := Canonicalize(tt.in)
		if err != nil {
			t.Errorf("Canonicalize(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeRejectsRelative(t *testing.T) {
	if _, err := Canonicalize("/game/moto-x3m"); err == nil {
		t.Error("expected error for relative URL")
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.crazygames.com/game/moto-x3m")
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"/images/a.png", "https://www.crazygames.com/images/a.png", true},
		{"//imgs.crazygames.com/a.png", "https://imgs.crazygames.com/a.png", true},
		{"https://cdn.example.com/x", "https://cdn.example.com/x", true},
		{"javascript:void(0)", "", false},
		{"data:image/png;base64,AAAA", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ResolveURL(base, tt.ref)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("https://www.crazygames.com/game/moto-x3m?x=1", "/game/"); got != "moto-x3m" {
		t.Errorf("Slug = %q", got)
	}
	if got := Slug("https://www.crazygames.com/about", "/game/"); got != "" {
		t.Errorf("Slug of non-item URL = %q, want empty", got)
	}
}

func TestCategoryFromURL(t *testing.T) {
	if got := CategoryFromURL("https://site.test/racing/game/moto"); got != "Racing" {
		t.Errorf("got %q, want Racing", got)
	}
	if got := CategoryFromURL("https://site.test/game/moto"); got != "Other" {
		t.Errorf("got %q, want Other", got)
	}
}
