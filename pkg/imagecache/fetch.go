// fetch.go — Transport for remote images. Two fetchers implement the two
// execution contexts: DirectFetcher for the headless/server context (no
// cross-origin restriction, browser-like headers) and ProxyFetcher for the
// browser context (same-origin proxy with retry policy).
package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout = 10 * time.Second
	// maxImageBytes bounds one response so a hostile host can't exhaust memory.
	maxImageBytes = 32 << 20

	// Some CDNs refuse requests without a browser User-Agent regardless of
	// origin. Presenting one is documented best-effort, not a guarantee.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	browserAccept    = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// ── Direct (server context) ──

// DirectFetcher fetches over plain HTTP with a bounded timeout.
type DirectFetcher struct {
	Client *http.Client
}

// NewDirectFetcher returns a fetcher with the default bounded client.
func NewDirectFetcher() *DirectFetcher {
	return &DirectFetcher{Client: &http.Client{Timeout: fetchTimeout}}
}

// Fetch retrieves rawURL, presenting browser-like headers.
func (f *DirectFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", browserAccept)

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("fetch %s: response exceeds %d bytes", rawURL, maxImageBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response", rawURL)
	}
	return body, nil
}

// ── Proxy (browser context) ──

// ProxyFetcher routes cross-origin-blocked hosts through a same-origin proxy
// endpoint (contract: <base>?url=<encoded original>). For a blocked host the
// order is proxy → direct → proxy once more; other hosts go direct with one
// proxy fallback. Already-proxied URLs and same-origin paths go direct.
type ProxyFetcher struct {
	ProxyBase    string
	Direct       Fetcher
	BlockedHosts []string
}

// Fetch applies the context's proxy policy.
func (f *ProxyFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, f.ProxyBase) || strings.HasPrefix(rawURL, "/") {
		return f.Direct.Fetch(ctx, rawURL)
	}

	proxied := f.ProxyURL(rawURL)
	if f.hostBlocked(rawURL) {
		if b, err := f.Direct.Fetch(ctx, proxied); err == nil {
			return b, nil
		}
		if b, err := f.Direct.Fetch(ctx, rawURL); err == nil {
			return b, nil
		}
		return f.Direct.Fetch(ctx, proxied)
	}

	b, err := f.Direct.Fetch(ctx, rawURL)
	if err == nil {
		return b, nil
	}
	return f.Direct.Fetch(ctx, proxied)
}

// ProxyURL wraps rawURL in the proxy contract, encoding it at most once.
func (f *ProxyFetcher) ProxyURL(rawURL string) string {
	return f.ProxyBase + "?url=" + EncodeProxyParam(rawURL)
}

func (f *ProxyFetcher) hostBlocked(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, blocked := range f.BlockedHosts {
		b := strings.ToLower(blocked)
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

var percentEncodedRe = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// EncodeProxyParam percent-encodes a URL for the proxy query parameter,
// unless it is already percent-encoded (double-encoding breaks the origin
// server's path handling).
func EncodeProxyParam(rawURL string) string {
	if percentEncodedRe.MatchString(rawURL) {
		return rawURL
	}
	return url.QueryEscape(rawURL)
}
