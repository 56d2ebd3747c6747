package extract

import "testing"

func TestStripTags(t *testing.T) {
	got := StripTags("<p>Tom &amp; Jerry <b>chase</b></p><p>again</p>")
	if got != "Tom & Jerry chase again" {
		t.Errorf("StripTags = %q", got)
	}
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<p>Hello</p>", true},
		{"Line<br/>break", true},
		{"plain text", false},
		{"Press < to turn left and > to turn right", false},
		{"Score 5 &amp;lt; 10", false},
		{"3<5", false},
	}
	for _, tt := range tests {
		if got := HasMarkup(tt.in); got != tt.want {
			t.Errorf("HasMarkup(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo", 2); got != "hé" {
		t.Errorf("TruncateRunes = %q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("TruncateRunes = %q", got)
	}
}
