// placeholder.go — Deterministic stand-in for unresolvable images: a labeled
// gray rectangle with a border and a diagonal cross, sized to the requested
// box. Identical inputs produce identical pixels on every platform.
package imagecache

import (
	"image"
	"image/color"
	"image/draw"
	"net/url"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderFill   = color.NRGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 0xff}
	placeholderBorder = color.NRGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	placeholderText   = color.NRGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// Placeholder builds the stand-in image for a w×h box with a short label.
func Placeholder(w, h int, label string) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{placeholderFill}, image.Point{}, draw.Src)

	// Border.
	for x := 0; x < w; x++ {
		img.SetNRGBA(x, 0, placeholderBorder)
		img.SetNRGBA(x, h-1, placeholderBorder)
	}
	for y := 0; y < h; y++ {
		img.SetNRGBA(0, y, placeholderBorder)
		img.SetNRGBA(w-1, y, placeholderBorder)
	}

	// Diagonal cross.
	steps := w
	if h > w {
		steps = h
	}
	for i := 0; i <= steps; i++ {
		x := i * (w - 1) / steps
		y := i * (h - 1) / steps
		img.SetNRGBA(x, y, placeholderBorder)
		img.SetNRGBA(w-1-x, y, placeholderBorder)
	}

	if label != "" && w >= 48 && h >= 24 {
		drawLabel(img, label, w, h)
	}
	return img
}

// drawLabel centers the label with the fixed 7x13 face; it is clipped to the
// box, never wrapped.
func drawLabel(img *image.NRGBA, label string, w, h int) {
	face := basicfont.Face7x13
	maxChars := (w - 8) / 7
	if maxChars < 1 {
		return
	}
	if len(label) > maxChars {
		label = label[:maxChars]
	}
	textW := 7 * len(label)
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{placeholderText},
		Face: face,
		Dot:  fixed.P((w-textW)/2, h/2+4),
	}
	d.DrawString(label)
}

// placeholderLabel derives a short human-readable tag from the failed URL.
func placeholderLabel(raw string) string {
	if raw == "" {
		return "no image"
	}
	if strings.HasPrefix(raw, "data:") {
		return "bad data url"
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "image unavailable"
}
