//go:build js

// webp_js.go — the WebP encoder is cgo-backed and unavailable in the browser
// build; callers there export PNG or JPEG instead.
package export

import (
	"fmt"
	"image"
	"io"
)

func encodeWebP(io.Writer, image.Image, int) error {
	return fmt.Errorf("webp encoding is not available in the browser build: use png or jpeg")
}
