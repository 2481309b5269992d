// -----------------------------------------------------------------------
// Page Fetch Adapter - boundary to the rendering engine
// -----------------------------------------------------------------------

package crawler

import "context"

// FetchStatus classifies the outcome of a page navigation
type FetchStatus string

const (
	FetchOK      FetchStatus = "ok"
	FetchTimeout FetchStatus = "timeout"
	FetchFailed  FetchStatus = "failed"
)

// FetchOutcome is the result of attempting to load one page. Failure
// paths are explicit values, not exceptions: the orchestrator branches on
// Status instead of unwinding through error handlers.
type FetchOutcome struct {
	Status     FetchStatus
	StatusCode int
	Err        error
}

// OK reports whether the page loaded successfully
func (o FetchOutcome) OK() bool {
	return o.Status == FetchOK
}

// Page is a handle to a loaded (or partially loaded) page in the
// rendering engine. A non-nil Page must be closed exactly once; Close
// releases the isolated per-page browsing context.
type Page interface {
	// URL returns the normalized URL this page was opened for
	URL() string

	// HTML returns the rendered document markup
	HTML(ctx context.Context) (string, error)

	// Context returns the renderer context for this page, usable by
	// collaborators that drive the same browser tab (e.g. screenshots)
	Context() context.Context

	// Close releases the per-page browsing context. Idempotent.
	Close() error
}

// Fetcher opens pages in isolated per-page contexts. Implementations must
// return a non-nil Page whenever a browsing context was actually opened,
// even if navigation subsequently failed, so the caller can guarantee
// release on every exit path.
type Fetcher interface {
	// Open navigates to url, waits for readiness plus the configured
	// settle delay, and reports the outcome. An HTTP status >= 400 or an
	// absent response is a failed fetch.
	Open(ctx context.Context, url string) (Page, FetchOutcome)

	// Close shuts the fetch adapter down and releases shared resources
	Close() error
}
