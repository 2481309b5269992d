// -----------------------------------------------------------------------
// Crawl Orchestrator - frontier-driven page processing loop
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/models"
)

// Crawler walks a single site breadth-first from a seed URL, visiting
// each page at most once, handing loaded pages to optional collaborators
// and accumulating link-following statistics.
//
// A Crawler processes one page at a time and must not run concurrent
// Crawl invocations; all frontier state is reset at the start of each
// call.
type Crawler struct {
	config     models.CrawlConfig
	fetcher    Fetcher
	normalizer *Normalizer
	frontier   *Frontier
	extractor  *LinkExtractor
	logger     arbor.ILogger

	crawlMu sync.Mutex
}

// New creates a crawler. The fetcher is the boundary to the rendering
// engine and is required; config is validated up front so a bad budget or
// timeout fails before any browser work starts.
func New(config models.CrawlConfig, fetcher Fetcher, logger arbor.ILogger) (*Crawler, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid crawl config: %w", err)
	}

	normalizer := NewNormalizer(config.IncludeSubdomains)

	return &Crawler{
		config:     config,
		fetcher:    fetcher,
		normalizer: normalizer,
		frontier:   NewFrontier(),
		extractor:  NewLinkExtractor(normalizer, logger),
		logger:     logger,
	}, nil
}

// Crawl visits same-domain pages starting from startURL until the page
// budget is exhausted or the frontier drains. Per-page failures are
// logged and skipped; Crawl only returns an error on setup problems
// (unparseable seed). The returned stats always reflect whatever was
// crawled, even when the context is cancelled mid-run.
func (c *Crawler) Crawl(ctx context.Context, startURL string, capturer ScreenshotCapturer, auditor Auditor) (*models.CrawlStats, error) {
	c.crawlMu.Lock()
	defer c.crawlMu.Unlock()

	if capturer == nil {
		capturer = NoopCapturer{}
	}
	if auditor == nil {
		auditor = NoopAuditor{}
	}

	seed, err := c.normalizer.Normalize(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}

	c.frontier.Reset()
	c.frontier.EnqueueIfNew(seed)

	stats := &models.CrawlStats{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		StartURL:  seed,
		Pages:     []models.PageRecord{},
	}

	c.logger.Info().
		Str("crawl_id", stats.ID).
		Str("start_url", seed).
		Int("max_pages", c.config.MaxPages).
		Msg("Starting crawl")

	pageCount := 0
	for pageCount < c.config.MaxPages {
		select {
		case <-ctx.Done():
			c.logger.Warn().Str("crawl_id", stats.ID).Msg("Crawl cancelled")
			return c.finalize(stats, pageCount), nil
		default:
		}

		current, ok := c.frontier.Dequeue()
		if !ok {
			break
		}

		// Defensive: the frontier never enqueues a visited URL, but a
		// stale entry is tolerated rather than trusted.
		if c.frontier.HasVisited(current) {
			continue
		}

		// Claim before fetch so a rediscovery of this URL while the page
		// is loading cannot re-queue it.
		c.frontier.MarkVisited(current)

		if c.normalizer.IsDownloadable(current) {
			c.logger.Debug().Str("url", current).Msg("Skipping downloadable file")
			continue
		}

		c.logger.Info().
			Str("url", current).
			Int("page", pageCount+1).
			Int("max_pages", c.config.MaxPages).
			Int("queued", c.frontier.Len()).
			Msg("Processing page")

		record, processed := c.processPage(ctx, current, pageCount, seed, capturer, auditor)
		if !processed {
			continue
		}

		stats.Pages = append(stats.Pages, *record)
		pageCount++
	}

	stats = c.finalize(stats, pageCount)

	c.logger.Info().
		Str("crawl_id", stats.ID).
		Int("pages_crawled", stats.PagesCrawled).
		Float64("duration_seconds", stats.DurationSeconds).
		Msg("Crawl completed")

	return stats, nil
}

func (c *Crawler) finalize(stats *models.CrawlStats, pageCount int) *models.CrawlStats {
	stats.EndTime = time.Now()
	stats.DurationSeconds = stats.EndTime.Sub(stats.StartTime).Seconds()
	stats.PagesCrawled = pageCount
	return stats
}

// processPage runs the per-page pipeline: fetch, collaborators, link
// extraction, frontier insertion. Every exit path releases the page
// context, including panics, which are recovered here so one broken page
// never aborts the crawl.
func (c *Crawler) processPage(ctx context.Context, pageURL string, index int, seed string, capturer ScreenshotCapturer, auditor Auditor) (record *models.PageRecord, processed bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("url", pageURL).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic while processing page")
			record, processed = nil, false
		}
	}()

	page, outcome := c.fetcher.Open(ctx, pageURL)
	if page != nil {
		defer page.Close()
	}

	if !outcome.OK() {
		if outcome.Status == FetchTimeout {
			c.logger.Warn().Str("url", pageURL).Msg("Timeout while loading page")
		} else {
			c.logger.Warn().
				Str("url", pageURL).
				Int("status_code", outcome.StatusCode).
				Err(outcome.Err).
				Msg("Failed to load page")
		}
		return nil, false
	}

	record = &models.PageRecord{
		URL:         pageURL,
		Number:      index,
		Screenshots: []models.ScreenshotRef{},
	}

	// Collaborators are best-effort: an error or panic in one is logged
	// and the page is still recorded.
	if refs := c.safeCapture(ctx, capturer, page, pageURL, index); refs != nil {
		record.Screenshots = refs
	}
	record.Lighthouse = c.safeAudit(ctx, auditor, pageURL, index)

	newLinks := c.extractPageLinks(ctx, page, pageURL, seed)
	added := 0
	for _, link := range newLinks {
		if c.frontier.EnqueueIfNew(link) {
			added++
		}
	}

	c.logger.Debug().
		Str("url", pageURL).
		Int("links_found", len(newLinks)).
		Int("links_added", added).
		Msg("Page processed")

	return record, true
}

// extractPageLinks reads the rendered markup and extracts crawl
// candidates. Extraction failure on a loaded page means zero links; the
// page is still recorded.
func (c *Crawler) extractPageLinks(ctx context.Context, page Page, pageURL, seed string) []string {
	html, err := page.HTML(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to read page markup")
		return nil
	}

	links, err := c.extractor.ExtractLinks(html, pageURL, seed)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("Link extraction failed")
		return nil
	}
	return links
}

func (c *Crawler) safeCapture(ctx context.Context, capturer ScreenshotCapturer, page Page, pageURL string, index int) (refs []models.ScreenshotRef) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().
				Str("url", pageURL).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Screenshot capturer panicked")
			refs = nil
		}
	}()

	refs, err := capturer.Capture(ctx, page, pageURL, index)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("Screenshot capture failed")
		return nil
	}
	return refs
}

func (c *Crawler) safeAudit(ctx context.Context, auditor Auditor, pageURL string, index int) (result *models.AuditResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().
				Str("url", pageURL).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Auditor panicked")
			result = nil
		}
	}()

	result, err := auditor.Audit(ctx, pageURL, index)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("Audit failed")
		return nil
	}
	return result
}
