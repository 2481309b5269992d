// -----------------------------------------------------------------------
// URL Normalizer/Classifier - canonical URL identity and crawl scoping
// -----------------------------------------------------------------------

package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// downloadableExtensions lists path extensions that identify non-HTML
// resources. These are never fetched and never enter the frontier.
var downloadableExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".rar": {}, ".tar": {}, ".gz": {}, ".7z": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".svg": {}, ".webp": {},
	".css": {}, ".js": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".xml": {}, ".json": {}, ".csv": {}, ".txt": {},
}

// Normalizer produces the canonical string form of a URL used as the
// dedup/identity key, and classifies URLs for crawl scoping.
//
// Normalization is deterministic and idempotent: lowercased scheme and
// host, default ports stripped, fragment removed, dot segments resolved,
// duplicate slashes collapsed, trailing slash removed (root keeps "/").
type Normalizer struct {
	// IncludeSubdomains widens SameDomain from exact-host match to
	// suffix match against the base host
	IncludeSubdomains bool
}

// NewNormalizer creates a normalizer with the given subdomain policy
func NewNormalizer(includeSubdomains bool) *Normalizer {
	return &Normalizer{IncludeSubdomains: includeSubdomains}
}

// Normalize canonicalizes a URL string. The result is the identity key
// for the visited set and the frontier: two URLs that normalize
// identically are the same page.
func (n *Normalizer) Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Strip default ports
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	} else if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// Fragments never identify a distinct page
	u.Fragment = ""
	u.RawFragment = ""

	// Clean the escaped form so an encoded slash inside a segment
	// (/a%2Fb) keeps its identity distinct from a real separator (/a/b)
	cleaned := normalizePath(u.EscapedPath())
	if decoded, err := url.PathUnescape(cleaned); err == nil {
		u.Path = decoded
		if decoded != cleaned {
			u.RawPath = cleaned
		} else {
			u.RawPath = ""
		}
	} else {
		u.Path = normalizePath(u.Path)
		u.RawPath = ""
	}

	return u.String(), nil
}

// normalizePath collapses duplicate slashes, resolves . and .. segments
// and strips the trailing slash so /path and /path/ compare equal.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "" {
		return "/"
	}
	return cleaned
}

// SameDomain reports whether candidate belongs to the crawl scope defined
// by base. The default policy is exact-host match; with IncludeSubdomains
// a candidate host that is a dot-suffix subdomain of the base host is
// also in scope.
func (n *Normalizer) SameDomain(baseURL, candidateURL string) bool {
	baseHost, err := hostOf(baseURL)
	if err != nil {
		return false
	}
	candHost, err := hostOf(candidateURL)
	if err != nil {
		return false
	}

	if baseHost == candHost {
		return true
	}
	if n.IncludeSubdomains {
		return strings.HasSuffix(candHost, "."+baseHost)
	}
	return false
}

// IsDownloadable reports whether the URL path extension identifies a
// non-HTML resource that should be excluded from fetching and the frontier.
func (n *Normalizer) IsDownloadable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	_, found := downloadableExtensions[ext]
	return found
}

// IsHTTP reports whether the URL uses an http or https scheme
func IsHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	return host, nil
}
