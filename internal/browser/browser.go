// Package browser implements the page-fetching collaborator on top of
// chromedp. Every fetch owns its own browser context and releases it
// on all exit paths, success or failure.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/useragent"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// Options are the per-job execution options threaded through every
// browser fetch.
type Options struct {
	Headless bool
	Proxy    string
}

// RenderOptions control a single Render pass.
type RenderOptions struct {
	WaitSelector   string        // CSS selector to wait for before capture
	Scrolls        int           // number of 800px window scrolls
	ScrollPause    time.Duration // pause between scrolls, defaults to 400ms
	ExpandControls bool          // click "See more"-style controls before capture
	Timeout        time.Duration
}

// Browser drives headless Chrome fetches.
type Browser struct {
	agents *useragent.Rotator
	logger *zap.Logger
}

func New(agents *useragent.Rotator, logger *zap.Logger) *Browser {
	return &Browser{agents: agents, logger: logger}
}

func (b *Browser) allocate(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.agents.Next()),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTask()
		cancelAlloc()
	}
	return taskCtx, cancel
}

// Render navigates to rawURL, performs the configured scroll and
// expand actions, and returns the page's outer HTML.
func (b *Browser) Render(ctx context.Context, rawURL string, opts Options, ropts RenderOptions) (string, error) {
	timeout := ropts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pause := ropts.ScrollPause
	if pause <= 0 {
		pause = 400 * time.Millisecond
	}

	taskCtx, cancel := b.allocate(ctx, opts)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, timeout)
	defer cancelTimeout()

	actions := []chromedp.Action{chromedp.Navigate(rawURL)}
	if ropts.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(ropts.WaitSelector, chromedp.ByQuery))
	}
	var scrolled bool
	for i := 0; i < ropts.Scrolls; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollBy(0, 800); true`, &scrolled),
			chromedp.Sleep(pause),
		)
	}
	if ropts.ExpandControls {
		var clicked int
		actions = append(actions,
			chromedp.Evaluate(expandControlsJS, &clicked),
			chromedp.Sleep(pause),
		)
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", classify(rawURL, err)
	}
	return html, nil
}

// Search issues one map search query and incrementally reveals
// results, invoking visit with the currently visible result links
// after each scroll. visit returning false stops the scroll loop; this
// is the cancellation check point inside a query.
func (b *Browser) Search(ctx context.Context, query string, maxScrolls int, opts Options, visit func(links []string) bool) error {
	taskCtx, cancel := b.allocate(ctx, opts)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, time.Duration(30+3*maxScrolls)*time.Second)
	defer cancelTimeout()

	searchURL := searchBaseURL + url.QueryEscape(query)
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(`div[role="feed"]`, chromedp.ByQuery),
	)
	if err != nil {
		// A timed-out wait here means the page loaded without a
		// results feed, not that navigation itself stalled.
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("results feed for %q: %w", query, domain.ErrElementNotFound)
		}
		return fmt.Errorf("results feed for %q: %w", query, classify(searchURL, err))
	}

	var scrolled bool
	var links []string
	for i := 0; i < maxScrolls; i++ {
		err := chromedp.Run(taskCtx,
			chromedp.Evaluate(scrollFeedJS, &scrolled),
			chromedp.Sleep(300*time.Millisecond),
			chromedp.Evaluate(collectResultLinksJS, &links),
		)
		if err != nil {
			return fmt.Errorf("scroll %d for %q: %w", i, query, classify(searchURL, err))
		}
		if !visit(links) {
			return nil
		}
	}
	return nil
}

const (
	scrollFeedJS = `(() => {
		const feed = document.querySelector('div[role="feed"]');
		if (feed) feed.scrollBy(0, 3000);
		return true;
	})()`

	// Last 30 visible result cards; earlier ones were already seen on
	// previous iterations.
	collectResultLinksJS = `Array.from(document.querySelectorAll('a.hfpxzc'))
		.slice(-30)
		.map(a => a.href)
		.filter(h => h.includes('/maps/place/'))`

	expandControlsJS = `(() => {
		const candidates = Array.from(document.querySelectorAll('div[role="button"], span'))
			.filter(e => /\b(See|Show|More)\b/.test(e.textContent || ''))
			.slice(0, 20);
		let clicked = 0;
		for (const el of candidates) {
			try { el.click(); clicked++; } catch (_) {}
		}
		return clicked;
	})()`
)

// classify maps a chromedp failure onto the pipeline's error taxonomy.
func classify(rawURL string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", rawURL, domain.ErrNavigationTimeout)
	case strings.Contains(err.Error(), "net::ERR"):
		return fmt.Errorf("%s: %v: %w", rawURL, err, domain.ErrConnection)
	default:
		return fmt.Errorf("%s: %w", rawURL, err)
	}
}
