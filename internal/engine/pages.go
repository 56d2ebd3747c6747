package engine

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/gameharvest/internal/automation"
	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/discovery"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
)

// NewPageSource returns a PageSource for cfg.Discovery.Renderer. The http
// renderer fetches the listing once; the browser renderer drives a live tab
// that can scroll for more items.
func NewPageSource(cfg *config.Config, logger *slog.Logger) PageSource {
	if cfg.Discovery.Renderer == "browser" {
		return func(ctx context.Context) (automation.ListingPage, func() error, error) {
			b, err := fetcher.LaunchBrowser(&cfg.Browser, logger)
			if err != nil {
				return nil, nil, err
			}
			tab, err := b.Page()
			if err != nil {
				_ = b.Close()
				return nil, nil, err
			}
			page, err := automation.OpenRodPage(ctx, tab, cfg.Site.ListingURL, cfg.Discovery.GrowWait, logger)
			if err != nil {
				_ = b.Close()
				return nil, nil, err
			}
			return page, b.Close, nil
		}
	}

	return func(ctx context.Context) (automation.ListingPage, func() error, error) {
		f, err := fetcher.NewHTTPFetcher(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		page, err := discovery.FetchStaticPage(ctx, f, cfg.Site.ListingURL)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return page, f.Close, nil
	}
}
