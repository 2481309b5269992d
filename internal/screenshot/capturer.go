// -----------------------------------------------------------------------
// Screenshot Capturer - chromedp-driven page captures written to disk
// -----------------------------------------------------------------------

package screenshot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/crawler"
	"github.com/ternarybob/lustro/internal/models"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Capturer captures viewport and full-page PNG screenshots of crawled
// pages into a configured directory. It drives the same browser tab the
// crawl rendered via the page handle's context.
type Capturer struct {
	config common.ScreenshotConfig
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ crawler.ScreenshotCapturer = (*Capturer)(nil)

// NewCapturer creates a screenshot capturer and ensures the output
// directory exists.
func NewCapturer(config common.ScreenshotConfig, logger arbor.ILogger) (*Capturer, error) {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return &Capturer{
		config: config,
		logger: logger,
	}, nil
}

// Capture takes a viewport screenshot and, when configured, a full-page
// screenshot of the loaded page. Returned refs point at the PNG files on
// disk.
func (c *Capturer) Capture(ctx context.Context, page crawler.Page, pageURL string, pageIndex int) ([]models.ScreenshotRef, error) {
	tabCtx := page.Context()
	slug := urlSlug(pageURL)

	var refs []models.ScreenshotRef

	// Viewport capture at the configured device metrics
	var viewportPNG []byte
	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(c.config.Width), int64(c.config.Height), 1, false),
		chromedp.CaptureScreenshot(&viewportPNG),
	)
	if err != nil {
		return nil, fmt.Errorf("viewport screenshot failed: %w", err)
	}

	name := fmt.Sprintf("page-%03d-%s-viewport.png", pageIndex, slug)
	path, err := c.write(name, viewportPNG)
	if err != nil {
		return nil, err
	}
	refs = append(refs, models.ScreenshotRef{
		Name:   name,
		Path:   path,
		Width:  c.config.Width,
		Height: c.config.Height,
	})

	if c.config.FullPage {
		var fullPNG []byte
		if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&fullPNG, c.config.Quality)); err != nil {
			// The viewport capture already succeeded; report what we have
			c.logger.Warn().Err(err).Str("url", pageURL).Msg("Full-page screenshot failed")
			return refs, nil
		}

		name := fmt.Sprintf("page-%03d-%s-full.png", pageIndex, slug)
		path, err := c.write(name, fullPNG)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to write full-page screenshot")
			return refs, nil
		}
		refs = append(refs, models.ScreenshotRef{Name: name, Path: path, Width: c.config.Width})
	}

	c.logger.Debug().
		Str("url", pageURL).
		Int("screenshots", len(refs)).
		Msg("Screenshots captured")

	return refs, nil
}

func (c *Capturer) write(name string, data []byte) (string, error) {
	path := filepath.Join(c.config.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", name, err)
	}
	return path, nil
}

// urlSlug derives a filesystem-safe name fragment from a URL
func urlSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "page"
	}
	slug := strings.ToLower(u.Hostname() + strings.ReplaceAll(u.Path, "/", "-"))
	slug = unsafeFilenameChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "page"
	}
	if len(slug) > 80 {
		slug = slug[:80]
	}
	return slug
}
