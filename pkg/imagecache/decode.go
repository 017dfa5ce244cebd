// decode.go — Byte-to-pixels decoding, including data URLs and WebP.
package imagecache

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

// decodeBytes decodes image bytes into NRGBA. A decoded image with a
// non-positive width is a failure, not a success.
func decodeBytes(data []byte) (*image.NRGBA, error) {
	var (
		img image.Image
		err error
	)
	if isWebP(data) {
		img, err = decodeWebP(data)
	} else {
		img, err = imaging.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("decoded image has no pixels")
	}
	return imaging.Clone(img), nil
}

// isWebP sniffs the RIFF/WEBP container magic.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP"))
}

// parseDataURL extracts the payload bytes of a data: URL.
// Form: data:[<mediatype>][;base64],<payload>
func parseDataURL(u string) ([]byte, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL: no comma")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL base64: %w", err)
		}
		return data, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL escape: %w", err)
	}
	return []byte(decoded), nil
}
