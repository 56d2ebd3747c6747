package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNoGrowth is returned by Grow when the page can never reveal more.
var ErrNoGrowth = errors.New("listing page cannot grow")

// ListingPage is a rendered listing page that can be asked to reveal more
// items.
type ListingPage interface {
	// Grow tries to reveal more items. It reports no error when nothing new
	// appears; callers detect stalls from the extracted links. Pages that
	// are fully loaded up front return ErrNoGrowth.
	Grow(ctx context.Context) error

	// HTML returns the current markup.
	HTML(ctx context.Context) (string, error)

	// URL is the address links on the page are resolved against.
	URL() string
}

// LoadMoreSelectors match "load more" controls some listings use instead
// of (or in addition to) infinite scroll.
var LoadMoreSelectors = []string{
	`button[class*="load-more"]`,
	`button[class*="LoadMore"]`,
	`[data-testid*="load-more"]`,
	`a[class*="load-more"]`,
}

// RodPage drives a listing page in a browser tab.
type RodPage struct {
	page   *rod.Page
	url    string
	wait   time.Duration
	logger *slog.Logger
}

// OpenRodPage navigates page to url and waits for the initial load.
func OpenRodPage(ctx context.Context, page *rod.Page, url string, wait time.Duration, logger *slog.Logger) (*RodPage, error) {
	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", url, err)
	}
	return &RodPage{
		page:   page,
		url:    url,
		wait:   wait,
		logger: logger.With("component", "rod_page"),
	}, nil
}

// Grow scrolls to the bottom, clicks a visible "load more" control if one
// exists, then waits for content to arrive.
func (rp *RodPage) Grow(ctx context.Context) error {
	p := rp.page.Context(ctx)

	before, err := rp.scrollHeight(p)
	if err != nil {
		return err
	}
	if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	rp.clickLoadMore(p)

	timer := time.NewTimer(rp.wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	after, err := rp.scrollHeight(p)
	if err == nil {
		rp.logger.Debug("grew listing", "height_before", before, "height_after", after)
	}
	return nil
}

func (rp *RodPage) scrollHeight(p *rod.Page) (int, error) {
	res, err := p.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

func (rp *RodPage) clickLoadMore(p *rod.Page) {
	for _, sel := range LoadMoreSelectors {
		els, err := p.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				rp.logger.Debug("load more click failed", "selector", sel, "error", err)
				continue
			}
			return
		}
	}
}

// HTML returns the page's current markup.
func (rp *RodPage) HTML(ctx context.Context) (string, error) {
	return rp.page.Context(ctx).HTML()
}

// URL returns the listing URL.
func (rp *RodPage) URL() string { return rp.url }
