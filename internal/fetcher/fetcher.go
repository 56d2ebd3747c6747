package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Factory creates a Fetcher owned by a single worker.
type Factory func() (Fetcher, error)

// NewFactory returns a Factory for the configured fetcher kind and a
// release function for resources shared by every fetcher it makes.
func NewFactory(cfg *config.Config, logger *slog.Logger) (Factory, func() error, error) {
	switch cfg.Harvest.Fetcher {
	case "http":
		factory := func() (Fetcher, error) {
			return NewHTTPFetcher(cfg, logger)
		}
		return factory, func() error { return nil }, nil
	case "browser":
		b, err := LaunchBrowser(&cfg.Browser, logger)
		if err != nil {
			return nil, nil, err
		}
		factory := func() (Fetcher, error) {
			return b.NewFetcher(cfg.Harvest.UserAgents)
		}
		return factory, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher type %q", cfg.Harvest.Fetcher)
	}
}
