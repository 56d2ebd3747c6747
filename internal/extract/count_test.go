package extract

import "testing"

func TestParseCount(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"12K", 12000, true},
		{"1.5M", 1500000, true},
		{"3,400", 3400, true},
		{"12k likes", 12000, true},
		{"  987 ", 987, true},
		{"12 members", 12, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCount(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatCountRoundTrip(t *testing.T) {
	for _, n := range []int{0, 7, 999, 1000, 1234, 12000, 999999, 1000000, 1234567, 1500000, 987654321} {
		s := FormatCount(n)
		got, ok := ParseCount(s)
		if !ok || got != n {
			t.Errorf("ParseCount(FormatCount(%d)) = ParseCount(%q) = %d, %v", n, s, got, ok)
		}
	}
}

func TestFormatCountShorthand(t *testing.T) {
	if got := FormatCount(12000); got != "12K" {
		t.Errorf("FormatCount(12000) = %q, want 12K", got)
	}
	if got := FormatCount(1500000); got != "1.5M" {
		t.Errorf("FormatCount(1500000) = %q, want 1.5M", got)
	}
}
