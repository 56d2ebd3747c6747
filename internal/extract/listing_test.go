package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const listingPage = `<html><body>
<div class="game-card"><a href="/game/moto-x3m"><img src="https://imgs.crazygames.com/moto-x3m/cover.png" alt="Moto X3M"></a></div>
<div class="game-card"><a href="/game/moto-x3m#play">Play</a></div>
<div class="grid"><div class="tile"><img data-src="/img/bubble.png"><a href="https://WWW.CrazyGames.com:443/game/bubble-shooter/"><span>Bubble Shooter</span></a></div></div>
<a href="/game/">Index</a>
<a href="/about">About</a>
<a href="/game/smash-karts"></a>
</body></html>`

func TestScanItemLinks(t *testing.T) {
	doc := mustDocument(t, "https://www.crazygames.com/", listingPage)
	cards := ScanItemLinks(doc, "/game/")

	var urls []string
	for _, c := range cards {
		urls = append(urls, c.URL)
	}
	want := []string{
		"https://www.crazygames.com/game/moto-x3m",
		"https://www.crazygames.com/game/bubble-shooter",
		"https://www.crazygames.com/game/smash-karts",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestCardChains(t *testing.T) {
	doc := mustDocument(t, "https://www.crazygames.com/", listingPage)
	cards := ScanItemLinks(doc, "/game/")
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}

	title := NewCardTitle("/game/")
	image := NewCardImage("imgs.crazygames.com")

	tests := []struct {
		card      Card
		wantTitle string
		wantRule  string
	}{
		{cards[0], "Moto X3M", "img[alt]"},
		{cards[1], "Bubble Shooter", "span"},
		{cards[2], "Smash Karts", "slug"},
	}
	for _, tt := range tests {
		got, rule, ok := title.Extract(&tt.card)
		if !ok || got != tt.wantTitle || rule != tt.wantRule {
			t.Errorf("title for %s = %q via %q, want %q via %q", tt.card.URL, got, rule, tt.wantTitle, tt.wantRule)
		}
	}

	if got, _, _ := image.Extract(&cards[0]); got != "https://imgs.crazygames.com/moto-x3m/cover.png" {
		t.Errorf("moto image = %q", got)
	}
	got, rule, _ := image.Extract(&cards[1])
	if got != "https://www.crazygames.com/img/bubble.png" || rule != "parent_img" {
		t.Errorf("bubble image = %q via %q", got, rule)
	}
}
