package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/models"
)

// fakeSite describes one URL served by the fake fetcher
type fakeSite struct {
	html       string
	outcome    FetchOutcome
	htmlErr    error
	htmlPanics bool
}

// fakeFetcher serves a canned site graph and counts every context it
// opens and closes so resource-release behavior is verifiable.
type fakeFetcher struct {
	sites      map[string]fakeSite
	opened     int
	closed     int
	visitOrder []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{sites: make(map[string]fakeSite)}
}

func (f *fakeFetcher) serve(url, html string) {
	f.sites[url] = fakeSite{html: html, outcome: FetchOutcome{Status: FetchOK, StatusCode: 200}}
}

func (f *fakeFetcher) fail(url string, outcome FetchOutcome) {
	f.sites[url] = fakeSite{outcome: outcome}
}

func (f *fakeFetcher) Open(ctx context.Context, url string) (Page, FetchOutcome) {
	f.opened++
	f.visitOrder = append(f.visitOrder, url)

	site, ok := f.sites[url]
	if !ok {
		site = fakeSite{outcome: FetchOutcome{Status: FetchFailed, StatusCode: 404, Err: errors.New("not found")}}
	}
	return &fakePage{url: url, site: site, fetcher: f}, site.outcome
}

func (f *fakeFetcher) Close() error { return nil }

type fakePage struct {
	url     string
	site    fakeSite
	fetcher *fakeFetcher
	closed  bool
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.site.htmlPanics {
		panic("renderer crashed")
	}
	if p.site.htmlErr != nil {
		return "", p.site.htmlErr
	}
	return p.site.html, nil
}

func (p *fakePage) Context() context.Context { return context.Background() }

func (p *fakePage) Close() error {
	if !p.closed {
		p.closed = true
		p.fetcher.closed++
	}
	return nil
}

// recordingCapturer remembers which pages it saw
type recordingCapturer struct {
	captured []string
	err      error
}

func (r *recordingCapturer) Capture(_ context.Context, _ Page, url string, index int) ([]models.ScreenshotRef, error) {
	r.captured = append(r.captured, url)
	if r.err != nil {
		return nil, r.err
	}
	return []models.ScreenshotRef{{Name: fmt.Sprintf("shot-%d.png", index), Path: "/tmp/shot.png"}}, nil
}

type panickingAuditor struct{}

func (panickingAuditor) Audit(context.Context, string, int) (*models.AuditResult, error) {
	panic("auditor exploded")
}

func testConfig(maxPages int) models.CrawlConfig {
	config := models.DefaultCrawlConfig()
	config.MaxPages = maxPages
	config.WaitTime = 0
	return config
}

func newTestCrawler(t *testing.T, config models.CrawlConfig, fetcher Fetcher) *Crawler {
	t.Helper()
	c, err := New(config, fetcher, arbor.NewLogger())
	require.NoError(t, err)
	return c
}

func link(path string) string {
	return fmt.Sprintf(`<a href="%s">link</a>`, path)
}

func TestCrawl_BreadthFirstOrderAndDedup(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/b")+link("/c"))
	fetcher.serve("https://example.com/b", link("/d"))
	fetcher.serve("https://example.com/c", link("/d"))
	fetcher.serve("https://example.com/d", "<p>leaf</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	// D is linked from both B and C but visited exactly once, after them
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}, fetcher.visitOrder)

	assert.Equal(t, 4, stats.PagesCrawled)
	require.Len(t, stats.Pages, 4)
	for i, page := range stats.Pages {
		assert.Equal(t, i, page.Number)
	}

	// No URL appears twice across page records
	seen := make(map[string]int)
	for _, page := range stats.Pages {
		seen[page.URL]++
	}
	for url, count := range seen {
		assert.Equal(t, 1, count, "URL %s visited more than once", url)
	}
}

func TestCrawl_RespectsPageBudget(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/p1")+link("/p2")+link("/p3")+link("/p4"))
	for i := 1; i <= 4; i++ {
		fetcher.serve(fmt.Sprintf("https://example.com/p%d", i), "<p>page</p>")
	}

	c := newTestCrawler(t, testConfig(3), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.PagesCrawled)
	assert.Len(t, stats.Pages, 3)
}

func TestCrawl_FailureIsolation(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/slow")+link("/broken")+link("/good"))
	fetcher.fail("https://example.com/slow", FetchOutcome{Status: FetchTimeout, Err: context.DeadlineExceeded})
	fetcher.fail("https://example.com/broken", FetchOutcome{Status: FetchFailed, StatusCode: 500, Err: errors.New("server error")})
	fetcher.serve("https://example.com/good", "<p>fine</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	// Failed pages are skipped, the crawl continues past them
	assert.Equal(t, 2, stats.PagesCrawled)
	urls := pageURLs(stats)
	assert.Contains(t, urls, "https://example.com/good")
	assert.NotContains(t, urls, "https://example.com/slow")
	assert.NotContains(t, urls, "https://example.com/broken")

	// Every opened context was closed, including the failed ones
	assert.Equal(t, 4, fetcher.opened)
	assert.Equal(t, fetcher.opened, fetcher.closed)
}

func TestCrawl_ExtractionFailureStillRecordsPage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/torn"))
	fetcher.sites["https://example.com/torn"] = fakeSite{
		outcome: FetchOutcome{Status: FetchOK, StatusCode: 200},
		htmlErr: errors.New("render detached"),
	}

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	// The torn page loaded, so it is recorded with zero links found
	assert.Equal(t, 2, stats.PagesCrawled)
	assert.Contains(t, pageURLs(stats), "https://example.com/torn")
}

func TestCrawl_PanicOnOnePageDoesNotAbortCrawl(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/bomb")+link("/good"))
	fetcher.sites["https://example.com/bomb"] = fakeSite{
		outcome:    FetchOutcome{Status: FetchOK, StatusCode: 200},
		htmlPanics: true,
	}
	fetcher.serve("https://example.com/good", "<p>fine</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	urls := pageURLs(stats)
	assert.NotContains(t, urls, "https://example.com/bomb")
	assert.Contains(t, urls, "https://example.com/good")

	// The panicking page's context was still released
	assert.Equal(t, 3, fetcher.opened)
	assert.Equal(t, fetcher.opened, fetcher.closed)
}

func TestCrawl_DomainContainment(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/",
		link("https://other.com/external")+link("https://blog.example.com/post")+link("/internal"))
	fetcher.serve("https://example.com/internal", "<p>in</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	normalizer := NewNormalizer(false)
	for _, page := range stats.Pages {
		assert.True(t, normalizer.SameDomain("https://example.com", page.URL),
			"page %s escaped the crawl domain", page.URL)
	}
	assert.Len(t, stats.Pages, 2)
}

func TestCrawl_SubdomainsWhenEnabled(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("https://blog.example.com/post"))
	fetcher.serve("https://blog.example.com/post", "<p>post</p>")

	config := testConfig(10)
	config.IncludeSubdomains = true

	c := newTestCrawler(t, config, fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	assert.Contains(t, pageURLs(stats), "https://blog.example.com/post")
}

func TestCrawl_SkipsDownloadableFiles(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/report.pdf")+link("/photo.jpg")+link("/about"))
	fetcher.serve("https://example.com/about", "<p>about</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	// Downloadables never reach the fetcher at all
	assert.Equal(t, 2, fetcher.opened)
	for _, page := range stats.Pages {
		assert.NotContains(t, page.URL, ".pdf")
		assert.NotContains(t, page.URL, ".jpg")
	}
}

func TestCrawl_CollaboratorFailuresDoNotAbortPage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/next"))
	fetcher.serve("https://example.com/next", "<p>next</p>")

	capturer := &recordingCapturer{err: errors.New("disk full")}

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", capturer, panickingAuditor{})
	require.NoError(t, err)

	// Both collaborators failed on every page, yet all pages are recorded
	assert.Equal(t, 2, stats.PagesCrawled)
	assert.Len(t, capturer.captured, 2)
	for _, page := range stats.Pages {
		assert.Empty(t, page.Screenshots)
		assert.Nil(t, page.Lighthouse)
	}
	assert.Equal(t, fetcher.opened, fetcher.closed)
}

func TestCrawl_CollaboratorResultsRecorded(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", "<p>home</p>")

	capturer := &recordingCapturer{}

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "https://example.com", capturer, nil)
	require.NoError(t, err)

	require.Len(t, stats.Pages, 1)
	require.Len(t, stats.Pages[0].Screenshots, 1)
	assert.Equal(t, "shot-0.png", stats.Pages[0].Screenshots[0].Name)
	assert.Nil(t, stats.Pages[0].Lighthouse)
}

func TestCrawl_StatsShape(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", "<p>home</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(context.Background(), "HTTPS://Example.COM", nil, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, stats.ID)
	assert.Equal(t, "https://example.com/", stats.StartURL)
	assert.False(t, stats.StartTime.IsZero())
	assert.False(t, stats.EndTime.IsZero())
	assert.GreaterOrEqual(t, stats.DurationSeconds, 0.0)
	assert.Equal(t, len(stats.Pages), stats.PagesCrawled)
}

func TestCrawl_ReusableAcrossInvocations(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/b"))
	fetcher.serve("https://example.com/b", "<p>b</p>")

	c := newTestCrawler(t, testConfig(10), fetcher)

	first, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)
	second, err := c.Crawl(context.Background(), "https://example.com", nil, nil)
	require.NoError(t, err)

	// A fresh frontier per invocation: the second crawl revisits everything
	assert.Equal(t, first.PagesCrawled, second.PagesCrawled)
	assert.Equal(t, 2, second.PagesCrawled)
}

func TestCrawl_CancelledContextReturnsPartialStats(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/", link("/b"))
	fetcher.serve("https://example.com/b", "<p>b</p>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCrawler(t, testConfig(10), fetcher)
	stats, err := c.Crawl(ctx, "https://example.com", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PagesCrawled)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	fetcher := newFakeFetcher()

	bad := testConfig(0) // MaxPages must be positive
	_, err := New(bad, fetcher, arbor.NewLogger())
	assert.Error(t, err)

	bad = testConfig(10)
	bad.Timeout = 0
	_, err = New(bad, fetcher, arbor.NewLogger())
	assert.Error(t, err)
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(testConfig(10), nil, arbor.NewLogger())
	assert.Error(t, err)
}

func TestCrawl_RejectsInvalidSeed(t *testing.T) {
	c := newTestCrawler(t, testConfig(10), newFakeFetcher())
	_, err := c.Crawl(context.Background(), "not a url", nil, nil)
	assert.Error(t, err)
}

func pageURLs(stats *models.CrawlStats) []string {
	urls := make([]string, 0, len(stats.Pages))
	for _, page := range stats.Pages {
		urls = append(urls, page.URL)
	}
	return urls
}
