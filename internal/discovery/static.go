package discovery

import (
	"context"
	"fmt"

	"github.com/IshaanNene/gameharvest/internal/automation"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// StaticPage is a ListingPage over a single fetched document.
type StaticPage struct {
	url  string
	html string
}

// NewStaticPage wraps already-fetched markup.
func NewStaticPage(url string, body []byte) *StaticPage {
	return &StaticPage{url: url, html: string(body)}
}

// FetchStaticPage fetches url once with f.
func FetchStaticPage(ctx context.Context, f fetcher.Fetcher, url string) (*StaticPage, error) {
	req, err := types.NewRequest(url)
	if err != nil {
		return nil, err
	}
	req.Tag = "listing"
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}
	final := resp.FinalURL
	if final == "" {
		final = url
	}
	return NewStaticPage(final, resp.Body), nil
}

// Grow always reports automation.ErrNoGrowth.
func (p *StaticPage) Grow(context.Context) error { return automation.ErrNoGrowth }

// HTML returns the fetched markup.
func (p *StaticPage) HTML(context.Context) (string, error) { return p.html, nil }

// URL returns the page URL.
func (p *StaticPage) URL() string { return p.url }
