// dynamicurl.go — Pure resolution of an image element's logical reference to
// the URL that should actually be requested, applied before any cache lookup.
// Priority: explicit dynamic mapping > embedded {{field}} placeholders >
// literal URL.
package imagecache

import (
	"strings"

	"github.com/pinforge/pinrender/pkg/subst"
	"github.com/pinforge/pinrender/pkg/template"
)

// ResolveDynamicImageURL returns the concrete URL for an image element given
// one row of data and the field mapping. Missing dynamic values fall through
// to the next priority level rather than erroring.
func ResolveDynamicImageURL(el *template.ImageElement, rowData template.RowData, fieldMapping template.FieldMapping) string {
	if el == nil {
		return ""
	}

	if el.IsDynamic && el.DynamicSource != "" {
		if v, ok := subst.ColumnValue(el.DynamicSource, rowData, fieldMapping); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	if subst.HasPlaceholders(el.ImageURL) {
		return subst.Substitute(el.ImageURL, rowData, fieldMapping)
	}

	return el.ImageURL
}

// BrowserURL maps a resolved URL to what the browser context should request.
// Canva-background elements whose source is already a data URL or already
// proxied pass through unchanged; blocked hosts are wrapped in the proxy
// contract (<proxyBase>?url=<encoded>, encoded at most once).
func BrowserURL(el *template.ImageElement, resolved, proxyBase string, blockedHosts []string) string {
	if resolved == "" {
		return ""
	}
	if el != nil && el.IsCanvaBackground {
		if strings.HasPrefix(resolved, "data:") || strings.Contains(resolved, proxyBase) {
			return resolved
		}
	}
	if strings.HasPrefix(resolved, "data:") || strings.HasPrefix(resolved, proxyBase) || strings.HasPrefix(resolved, "/") {
		return resolved
	}

	pf := ProxyFetcher{ProxyBase: proxyBase, BlockedHosts: blockedHosts}
	if pf.hostBlocked(resolved) {
		return pf.ProxyURL(resolved)
	}
	return resolved
}
