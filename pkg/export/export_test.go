package export

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/webp"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"png", FormatPNG, true},
		{"PNG", FormatPNG, true},
		{"", FormatPNG, true},
		{".png", FormatPNG, true},
		{"jpg", FormatJPEG, true},
		{"jpeg", FormatJPEG, true},
		{".JPEG", FormatJPEG, true},
		{"webp", FormatWebP, true},
		{"gif", "", false},
		{"bmp", "", false},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseFormat(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExt(t *testing.T) {
	if Ext(FormatPNG) != ".png" || Ext(FormatJPEG) != ".jpg" || Ext(FormatWebP) != ".webp" {
		t.Error("extension mapping wrong")
	}
	// Unknown formats fall back to PNG.
	if Ext(Format("odd")) != ".png" {
		t.Error("unknown format must map to .png")
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	src := solidImage(20, 30, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := Encode(&buf, src, Options{Format: FormatPNG}); err != nil {
		t.Fatal(err)
	}
	out, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 30 {
		t.Errorf("bounds = %v", b)
	}
}

func TestEncodeJPEGFlattensAlpha(t *testing.T) {
	// Fully transparent input flattens onto white, not black.
	src := solidImage(10, 10, color.NRGBA{})
	var buf bytes.Buffer
	if err := Encode(&buf, src, Options{Format: FormatJPEG, Quality: 95}); err != nil {
		t.Fatal(err)
	}
	out, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := out.At(5, 5).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("flattened pixel = (%d, %d, %d), want near-white", r>>8, g>>8, b>>8)
	}
}

func TestEncodeScale(t *testing.T) {
	src := solidImage(10, 10, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := Encode(&buf, src, Options{Format: FormatPNG, Scale: 2}); err != nil {
		t.Fatal(err)
	}
	out, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("scaled bounds = %v, want 20x20", b)
	}
}

func TestEncodeWebPRoundTrip(t *testing.T) {
	src := solidImage(16, 12, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	if err := Encode(&buf, src, Options{Format: FormatWebP, Quality: 90}); err != nil {
		t.Fatal(err)
	}
	// Decode with the pure-Go decoder the browser build uses, so the two
	// WebP halves are checked against each other.
	out, err := webp.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("bounds = %v", b)
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, solidImage(2, 2, color.NRGBA{A: 255}), Options{Format: "tiff"}); err == nil {
		t.Error("unknown format must error")
	}
}

func TestWriteInfersFormatFromExt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := Write(path, solidImage(4, 4, color.NRGBA{A: 255}), Options{}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("written file is not a PNG: %v", err)
	}

	if err := Write(filepath.Join(dir, "out.xyz"), solidImage(4, 4, color.NRGBA{A: 255}), Options{}); err == nil {
		t.Error("unknown extension must error")
	}
}
