// Package imagecache resolves logical image references (remote URLs, data
// URLs, proxied URLs) to decoded pixel data through a two-tier cache: tier 1
// holds raw fetched bytes, tier 2 holds decoded images. Resolution never
// fails — every error path degrades to a deterministic labeled placeholder so
// one bad image can't abort a batch.
//
// The cache is an explicit session-owned handle, not package state: construct
// one per rendering session and drop it (or Clear it) when the session ends.
package imagecache

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
)

// Cache is the two-tier image cache plus its transport. Safe for concurrent
// use; writes are idempotent (all writes for one URL are value-equivalent,
// last write wins).
type Cache struct {
	mu      sync.RWMutex
	raw     map[string][]byte       // tier 1: fetched bytes, keyed by resolved URL
	decoded map[string]*image.NRGBA // tier 2: decoded pixels, cloned on checkout

	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a cache backed by fetcher. A nil fetcher disables network
// resolution (data URLs and pre-populated tiers still work). A nil logger
// falls back to slog.Default().
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		raw:     make(map[string][]byte),
		decoded: make(map[string]*image.NRGBA),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve returns decoded pixels for url, sized placeholders aside, following
// the tier order: decoded cache → raw cache → data-URL decode → network
// fetch. On any failure it returns a placeholder sized to (boxW, boxH) and
// logs the cause; it never returns nil and never propagates an error.
func (c *Cache) Resolve(ctx context.Context, url string, boxW, boxH int) *image.NRGBA {
	img, err := c.resolve(ctx, url)
	if err != nil {
		c.logger.Warn("image resolution failed, using placeholder",
			slog.String("url", truncateURL(url)),
			slog.String("error", err.Error()))
		return Placeholder(boxW, boxH, placeholderLabel(url))
	}
	return img
}

// resolve is the fallible core of Resolve.
func (c *Cache) resolve(ctx context.Context, url string) (*image.NRGBA, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("empty image url")
	}

	// Tier 2: decoded. Checkout clones — a decoded image is never shared
	// between two scene nodes, since nodes crop and resize in place.
	c.mu.RLock()
	dec, okDec := c.decoded[url]
	rawBytes, okRaw := c.raw[url]
	c.mu.RUnlock()
	if okDec {
		return checkout(dec), nil
	}

	// Tier 1: raw bytes.
	if okRaw {
		return c.decodeAndStore(url, rawBytes)
	}

	// Data URLs decode locally, no fetch.
	if strings.HasPrefix(url, "data:") {
		payload, err := parseDataURL(url)
		if err != nil {
			return nil, err
		}
		return c.decodeAndStore(url, payload)
	}

	if c.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", url)
	}
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.raw[url] = body
	c.mu.Unlock()

	return c.decodeAndStore(url, body)
}

// decodeAndStore decodes bytes, populates tier 2, and checks out a clone.
func (c *Cache) decodeAndStore(url string, data []byte) (*image.NRGBA, error) {
	img, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", truncateURL(url), err)
	}

	c.mu.Lock()
	c.decoded[url] = img
	c.mu.Unlock()

	return checkout(img), nil
}

// Warm pre-populates tier 1 for a URL, e.g. from an upload the editor already
// holds in memory.
func (c *Cache) Warm(url string, data []byte) {
	c.mu.Lock()
	c.raw[url] = data
	c.mu.Unlock()
}

// Clear drops both tiers. Called at session end.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.raw = make(map[string][]byte)
	c.decoded = make(map[string]*image.NRGBA)
	c.mu.Unlock()
}

// Stats reports entry counts per tier.
func (c *Cache) Stats() (rawEntries, decodedEntries int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.raw), len(c.decoded)
}

// checkout deep-copies a decoded image. Hard invariant: the same backing
// pixel buffer is never attached to two scene nodes.
func checkout(src *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}

func truncateURL(url string) string {
	if len(url) > 96 {
		return url[:96] + "…"
	}
	return url
}
