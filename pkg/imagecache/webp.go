//go:build !js

// webp.go — WebP decoding for native builds.
package imagecache

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
)

func decodeWebP(data []byte) (image.Image, error) {
	return webp.Decode(bytes.NewReader(data))
}
