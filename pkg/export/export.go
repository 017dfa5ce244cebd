// Package export encodes rendered pins as PNG, JPEG or WebP.
//
// All output follows a unified pipeline: render an image.Image first, then
// encode it at the requested scale. Format is inferred from the file
// extension on the file path entry points and stated explicitly on the
// writer entry points (the WASM and HTTP paths).
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// Options control encoding. Zero value means PNG at native resolution.
type Options struct {
	Format  Format
	Quality int     // 1..100, JPEG and WebP only (default 90)
	Scale   float64 // resolution multiplier (default 1; e.g. 2 for @2x)
}

// Write encodes img to the given file path. The format is inferred from the
// extension unless opts.Format overrides it.
func Write(output string, img image.Image, opts Options) error {
	if opts.Format == "" {
		f, err := formatFromExt(filepath.Ext(output))
		if err != nil {
			return err
		}
		opts.Format = f
	}

	fh, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer fh.Close()

	if err := Encode(fh, img, opts); err != nil {
		return fmt.Errorf("encode %s: %w", output, err)
	}
	return nil
}

// Encode writes img to w in the requested format. This is the in-memory
// entry point used by the WASM and HTTP clients.
func Encode(w io.Writer, img image.Image, opts Options) error {
	img = scaled(img, opts.Scale)
	q := opts.Quality
	if q <= 0 || q > 100 {
		q = 90
	}

	switch opts.Format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatJPEG:
		// JPEG has no alpha channel; flatten onto white.
		return jpeg.Encode(w, flattened(img), &jpeg.Options{Quality: q})
	case FormatWebP:
		return encodeWebP(w, img, q)
	default:
		return fmt.Errorf("unsupported format %q: use png, jpeg or webp", opts.Format)
	}
}

// Ext returns the canonical file extension for a format.
func Ext(f Format) string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatWebP:
		return ".webp"
	default:
		return ".png"
	}
}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png", "":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use png, jpeg or webp", s)
	}
}

func formatFromExt(ext string) (Format, error) {
	return ParseFormat(ext)
}

func scaled(img image.Image, scale float64) image.Image {
	if scale <= 0 || scale == 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func flattened(img image.Image) image.Image {
	bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), toRGBA(255, 255, 255))
	return imaging.Overlay(bg, img, image.Point{}, 1.0)
}

// toRGBA is a convenience to construct color.RGBA with full alpha.
func toRGBA(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
