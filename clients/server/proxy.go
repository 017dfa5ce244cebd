// proxy.go — Server side of the image proxy contract: GET /api/proxy?url=
// fetches a remote image with browser-like headers and relays it same-origin
// so a browser client can read the pixels without CORS taint.
package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxProxyBytes bounds one relayed response.
const maxProxyBytes = 32 << 20

func (s *srv) handleProxy(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	// The client encodes at most once; tolerate both encoded and plain.
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be absolute http(s)"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "build request: " + err.Error()})
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetch upstream: " + err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream status " + resp.Status})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		// Some hosts serve images as octet-stream; pass those through and
		// let the decoder decide.
		if contentType != "application/octet-stream" && contentType != "" {
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream is not an image: " + contentType})
			return
		}
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, io.LimitReader(resp.Body, maxProxyBytes)); err != nil {
		s.logger.Warn("proxy relay interrupted", "url", target.String(), "error", err)
	}
}
