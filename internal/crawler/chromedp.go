// -----------------------------------------------------------------------
// ChromeFetcher - chromedp-backed implementation of the Fetcher boundary
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/models"
)

// ChromeFetcher loads pages with a headless Chromium driven by chromedp.
// A single exec allocator is shared across the crawl; every page gets its
// own browser context so no cookies or storage leak between pages.
var (
	_ Fetcher = (*ChromeFetcher)(nil)
	_ Page    = (*chromePage)(nil)
)

type ChromeFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      models.CrawlConfig
	logger      arbor.ILogger
	closed      bool
	mu          sync.Mutex
}

// NewChromeFetcher creates the shared allocator and verifies that a
// browser can actually start. A probe failure here is the fatal setup
// error that aborts the whole crawl.
func NewChromeFetcher(config models.CrawlConfig, logger arbor.ILogger) (*ChromeFetcher, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(config.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	f := &ChromeFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		config:      config,
		logger:      logger,
	}

	// Startup probe: launch one browser and navigate to about:blank so a
	// missing or broken Chromium surfaces before the crawl loop starts.
	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()

	testCtx, testCancel := context.WithTimeout(probeCtx, 30*time.Second)
	defer testCancel()

	startTime := time.Now()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		allocCancel()
		return nil, fmt.Errorf("browser failed startup probe: %w", err)
	}

	logger.Debug().
		Dur("startup_time", time.Since(startTime)).
		Str("user_agent", config.UserAgent).
		Msg("Browser allocator initialized")

	return f, nil
}

// Open navigates to url in a fresh browser context. The returned Page is
// non-nil whenever a context was opened, including on navigation failure,
// so the caller can release it unconditionally. Caller cancellation
// interrupts an in-flight load, not just the gap between pages.
func (f *ChromeFetcher) Open(ctx context.Context, url string) (Page, FetchOutcome) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, FetchOutcome{Status: FetchFailed, Err: errors.New("fetcher is closed")}
	}
	f.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(f.allocCtx)
	page := &chromePage{url: url, ctx: tabCtx, cancel: tabCancel}

	// Navigation and document readiness run under the per-page deadline
	navCtx, navDone := phaseContext(ctx, tabCtx, f.config.NavigationTimeout())
	defer navDone()

	// RunResponse blocks until the main navigation produces a response
	// (or the navigation fails outright).
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return page, FetchOutcome{Status: FetchTimeout, Err: err}
		}
		return page, FetchOutcome{Status: FetchFailed, Err: err}
	}

	statusCode := 0
	if resp != nil {
		statusCode = int(resp.Status)
	}
	if resp == nil || statusCode >= 400 {
		return page, FetchOutcome{
			Status:     FetchFailed,
			StatusCode: statusCode,
			Err:        fmt.Errorf("page returned status %d", statusCode),
		}
	}

	if err := chromedp.Run(navCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return page, FetchOutcome{Status: FetchTimeout, StatusCode: statusCode, Err: err}
		}
		return page, FetchOutcome{Status: FetchFailed, StatusCode: statusCode, Err: err}
	}

	// The settle delay is additional to the navigation budget: the page
	// has loaded, so this wait for late-rendering content must not be
	// charged against the navigation deadline.
	if delay := f.config.SettleDelay(); delay > 0 {
		settleCtx, settleDone := phaseContext(ctx, tabCtx, 0)
		err := chromedp.Run(settleCtx, chromedp.Sleep(delay))
		settleDone()
		if err != nil {
			return page, FetchOutcome{Status: FetchFailed, StatusCode: statusCode, Err: err}
		}
	}

	return page, FetchOutcome{Status: FetchOK, StatusCode: statusCode}
}

// phaseContext derives the context one fetch phase runs under: scoped to
// the tab, bounded by timeout when positive, and cancelled early when the
// caller's ctx is cancelled. The returned stop func releases the watcher
// and the phase context.
func phaseContext(ctx, tabCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var phaseCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		phaseCtx, cancel = context.WithTimeout(tabCtx, timeout)
	} else {
		phaseCtx, cancel = context.WithCancel(tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return phaseCtx, func() {
		stop()
		cancel()
	}
}

// Close shuts down the shared allocator. Pages opened earlier must
// already have been closed by the crawl loop.
func (f *ChromeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.allocCancel()
	f.logger.Debug().Msg("Browser allocator shut down")
	return nil
}

// chromePage is the per-page handle backed by a dedicated browser context
type chromePage struct {
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

func (p *chromePage) URL() string { return p.url }

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return html, nil
}

func (p *chromePage) Context() context.Context { return p.ctx }

func (p *chromePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	return nil
}
