//go:build js

// webp_js.go — the native WebP decoder is cgo-backed; the browser build
// decodes with the pure-Go implementation instead.
package imagecache

import (
	"bytes"
	"image"

	"golang.org/x/image/webp"
)

func decodeWebP(data []byte) (image.Image, error) {
	return webp.Decode(bytes.NewReader(data))
}
