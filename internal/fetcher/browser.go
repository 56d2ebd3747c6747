package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/types"
)

var windowSizes = []string{"1920,1080", "1366,768", "1536,864", "1440,900", "1280,720"}

// Browser is a launched headless browser shared by the page-level
// fetchers and listing pages created from it.
type Browser struct {
	browser *rod.Browser
	cfg     *config.BrowserConfig
	logger  *slog.Logger
	uaIndex atomic.Int64
}

// LaunchBrowser starts Chromium and connects to it.
func LaunchBrowser(cfg *config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Stealth {
		l = l.Set("window-size", windowSizes[rand.Intn(len(windowSizes))])
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b := &Browser{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser"),
	}
	b.logger.Info("browser ready", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return b, nil
}

// Page opens a blank page, with stealth patches when configured.
func (b *Browser) Page() (*rod.Page, error) {
	if b.cfg.Stealth {
		page, err := stealth.Page(b.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	return b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// NewFetcher creates a fetcher that owns one page of this browser.
func (b *Browser) NewFetcher(userAgents []string) (*BrowserFetcher, error) {
	page, err := b.Page()
	if err != nil {
		return nil, err
	}
	if len(userAgents) > 0 {
		ua := userAgents[int(b.uaIndex.Add(1))%len(userAgents)]
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			b.logger.Warn("failed to set user agent", "error", err)
		}
	}
	return &BrowserFetcher{page: page, logger: b.logger.With("component", "browser_fetcher")}, nil
}

// Close shuts down the browser.
func (b *Browser) Close() error {
	return b.browser.Close()
}

// BrowserFetcher implements Fetcher by rendering pages in one browser tab.
type BrowserFetcher struct {
	page   *rod.Page
	logger *slog.Logger
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()
	page := bf.page.Context(ctx)

	if err := page.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Kind: types.ClassifyFailure(err)}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Kind: types.ClassifyFailure(err)}
	}
	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Kind: types.ClassifyFailure(err)}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	// Rod does not surface the document status; a rendered page counts as 200.
	duration := time.Since(start)
	resp := types.NewBrowserResponse(req, 200, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)
	return resp, nil
}

// Close closes the fetcher's page.
func (bf *BrowserFetcher) Close() error {
	return bf.page.Close()
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
