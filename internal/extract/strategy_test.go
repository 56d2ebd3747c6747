package extract

import "testing"

func TestChainFirstValidWins(t *testing.T) {
	calls := 0
	chain := Chain[string, string]{
		Attribute: "title",
		Valid:     Longer(2),
		Rules: []Rule[string, string]{
			{"absent", func(string) (string, bool) { calls++; return "", false }},
			{"too_short", func(string) (string, bool) { calls++; return "ab", true }},
			{"good", func(string) (string, bool) { calls++; return "abc", true }},
			{"later", func(string) (string, bool) { calls++; return "never", true }},
		},
	}

	got, rule, ok := chain.Extract("")
	if !ok || got != "abc" || rule != "good" {
		t.Errorf("Extract = %q via %q (ok=%v)", got, rule, ok)
	}
	if calls != 3 {
		t.Errorf("expected later rules to be skipped, got %d calls", calls)
	}
}

func TestChainAllAbsent(t *testing.T) {
	chain := Chain[string, int]{
		Rules: []Rule[string, int]{
			{"none", func(string) (int, bool) { return 0, false }},
		},
	}
	if _, _, ok := chain.Extract(""); ok {
		t.Error("expected absent")
	}
}
