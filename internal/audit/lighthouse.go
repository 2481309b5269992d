// -----------------------------------------------------------------------
// Lighthouse Auditor - performance audits via the Lighthouse CLI
// -----------------------------------------------------------------------

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/crawler"
	"github.com/ternarybob/lustro/internal/models"
)

// LighthouseAuditor runs the Lighthouse CLI against a URL and extracts
// the category scores. The raw audit JSON is kept on disk beside the
// crawl reports.
type LighthouseAuditor struct {
	binary  string
	dir     string
	timeout time.Duration
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ crawler.Auditor = (*LighthouseAuditor)(nil)

// lighthouseReport is the subset of the Lighthouse JSON output we read
type lighthouseReport struct {
	FetchTime  string `json:"fetchTime"`
	Categories struct {
		Performance   categoryScore `json:"performance"`
		Accessibility categoryScore `json:"accessibility"`
		BestPractices categoryScore `json:"best-practices"`
		SEO           categoryScore `json:"seo"`
	} `json:"categories"`
}

type categoryScore struct {
	Score float64 `json:"score"` // 0-1 in Lighthouse output
}

// NewLighthouseAuditor creates an auditor. A missing Lighthouse binary is
// reported here so the caller can run the crawl without audits instead of
// failing every page.
func NewLighthouseAuditor(config common.LighthouseConfig, logger arbor.ILogger) (*LighthouseAuditor, error) {
	if _, err := exec.LookPath(config.Binary); err != nil {
		return nil, fmt.Errorf("lighthouse binary %q not found: %w", config.Binary, err)
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit output directory: %w", err)
	}

	timeout := 90 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid lighthouse timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	return &LighthouseAuditor{
		binary:  config.Binary,
		dir:     config.Dir,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Audit runs Lighthouse against url and returns the category scores
// scaled to 0-100.
func (a *LighthouseAuditor) Audit(ctx context.Context, url string, pageIndex int) (*models.AuditResult, error) {
	rawPath := filepath.Join(a.dir, fmt.Sprintf("lighthouse-%03d.json", pageIndex))

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(runCtx, a.binary, url,
		"--output=json",
		"--output-path="+rawPath,
		"--quiet",
		"--chrome-flags=--headless --no-sandbox",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("lighthouse audit timed out after %s", a.timeout)
		}
		return nil, fmt.Errorf("lighthouse audit failed: %w (output: %s)", err, string(out))
	}

	data, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lighthouse output: %w", err)
	}

	var report lighthouseReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse lighthouse output: %w", err)
	}

	result := &models.AuditResult{
		Performance:   report.Categories.Performance.Score * 100,
		Accessibility: report.Categories.Accessibility.Score * 100,
		BestPractices: report.Categories.BestPractices.Score * 100,
		SEO:           report.Categories.SEO.Score * 100,
		RawPath:       rawPath,
	}
	if fetchTime, err := time.Parse(time.RFC3339, report.FetchTime); err == nil {
		result.FetchTime = fetchTime
	}

	a.logger.Debug().
		Str("url", url).
		Float64("performance", result.Performance).
		Dur("duration", time.Since(startTime)).
		Msg("Lighthouse audit completed")

	return result, nil
}
