package models

import (
	"time"
)

// CrawlConfig holds the configuration for a single crawl invocation.
// Validated with go-playground/validator before a crawl starts.
type CrawlConfig struct {
	// MaxPages is the crawl page budget (pages successfully processed)
	MaxPages int `json:"max_pages" toml:"max_pages" validate:"gt=0"`

	// Timeout is the per-page navigation timeout in milliseconds
	Timeout int `json:"timeout" toml:"timeout" validate:"gt=0"`

	// WaitTime is the post-load settle delay in seconds, applied after the
	// page reports ready and before extraction/collaborators run
	WaitTime int `json:"wait_time" toml:"wait_time" validate:"gte=0"`

	// UserAgent sent by the fetch adapter
	UserAgent string `json:"user_agent" toml:"user_agent"`

	// IncludeSubdomains widens same-domain matching from exact host to
	// host-suffix matching (blog.example.com counts as example.com)
	IncludeSubdomains bool `json:"include_subdomains" toml:"include_subdomains"`
}

// DefaultCrawlConfig returns sensible defaults matching a typical
// single-site audit run.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:          50,
		Timeout:           30000,
		WaitTime:          2,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		IncludeSubdomains: false,
	}
}

// NavigationTimeout returns the per-page timeout as a time.Duration
func (c CrawlConfig) NavigationTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// SettleDelay returns the post-load wait as a time.Duration
func (c CrawlConfig) SettleDelay() time.Duration {
	return time.Duration(c.WaitTime) * time.Second
}

// ScreenshotRef points at a captured screenshot on disk
type ScreenshotRef struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// AuditResult holds category scores from a performance audit.
// Scores are 0-100; RawPath points at the full audit JSON on disk.
type AuditResult struct {
	Performance   float64   `json:"performance"`
	Accessibility float64   `json:"accessibility"`
	BestPractices float64   `json:"best_practices"`
	SEO           float64   `json:"seo"`
	FetchTime     time.Time `json:"fetch_time,omitempty"`
	RawPath       string    `json:"raw_path,omitempty"`
}

// PageRecord is the per-page result bundle. It is created when a page
// loads successfully and is immutable once appended to CrawlStats.Pages.
type PageRecord struct {
	URL         string          `json:"url"`
	Number      int             `json:"number"`
	Screenshots []ScreenshotRef `json:"screenshots"`
	Lighthouse  *AuditResult    `json:"lighthouse"`
}

// CrawlStats is the aggregate result of one crawl invocation.
// Owned exclusively by the orchestrator until Crawl returns.
type CrawlStats struct {
	ID              string       `json:"id" badgerhold:"key"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationSeconds float64      `json:"duration_seconds"`
	StartURL        string       `json:"start_url" badgerhold:"index"`
	PagesCrawled    int          `json:"pages_crawled"`
	Pages           []PageRecord `json:"pages"`
}
