package crawler

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// ScreenshotCapturer captures screenshots of a loaded page. Capture
// receives the live page handle so implementations can drive the same
// browser tab the crawl rendered.
type ScreenshotCapturer interface {
	Capture(ctx context.Context, page Page, url string, pageIndex int) ([]models.ScreenshotRef, error)
}

// Auditor runs a performance audit against a URL
type Auditor interface {
	Audit(ctx context.Context, url string, pageIndex int) (*models.AuditResult, error)
}

// NoopCapturer is the default when no screenshot collaborator is
// configured; the crawl loop never nil-checks collaborators.
type NoopCapturer struct{}

func (NoopCapturer) Capture(context.Context, Page, string, int) ([]models.ScreenshotRef, error) {
	return nil, nil
}

// NoopAuditor is the default when no audit collaborator is configured
type NoopAuditor struct{}

func (NoopAuditor) Audit(context.Context, string, int) (*models.AuditResult, error) {
	return nil, nil
}
