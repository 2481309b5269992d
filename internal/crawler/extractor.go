// -----------------------------------------------------------------------
// Link Extractor - hyperlink discovery and crawl-scope filtering
// -----------------------------------------------------------------------

package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// LinkExtractor pulls hyperlink targets out of rendered page markup and
// filters them down to crawlable same-domain URLs.
type LinkExtractor struct {
	normalizer *Normalizer
	logger     arbor.ILogger
}

// NewLinkExtractor creates a link extractor using the given normalizer
// for scoping and canonicalization
func NewLinkExtractor(normalizer *Normalizer, logger arbor.ILogger) *LinkExtractor {
	return &LinkExtractor{
		normalizer: normalizer,
		logger:     logger,
	}
}

// ExtractLinks returns the normalized crawl candidates found in the
// document, in document order. Duplicates within a single page are
// allowed through; deduplication happens at frontier insertion.
//
// Filtering pipeline per raw href: skip non-navigational schemes, resolve
// relative references against pageURL, reject non-HTTP(S), reject
// cross-domain against baseURL, reject downloadable files, normalize.
func (le *LinkExtractor) ExtractLinks(html, pageURL, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for link extraction: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL %q: %w", pageURL, err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || shouldSkipHref(href) {
			return
		}

		resolved, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			le.logger.Debug().Err(err).Str("href", href).Msg("Failed to resolve link")
			return
		}
		candidate := resolved.String()

		if !IsHTTP(candidate) {
			return
		}
		if !le.normalizer.SameDomain(baseURL, candidate) {
			return
		}
		if le.normalizer.IsDownloadable(candidate) {
			return
		}

		normalized, err := le.normalizer.Normalize(candidate)
		if err != nil {
			le.logger.Debug().Err(err).Str("url", candidate).Msg("Failed to normalize link")
			return
		}
		links = append(links, normalized)
	})

	le.logger.Debug().
		Str("page_url", pageURL).
		Int("links_found", len(links)).
		Msg("Links extracted from page")

	return links, nil
}

// shouldSkipHref rejects hrefs that never lead to a crawlable page
func shouldSkipHref(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}
