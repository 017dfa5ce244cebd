// Package fit computes image placement transforms for the three fit modes.
// Pure arithmetic — no I/O, no image decoding — so the browser and headless
// render paths share identical placement math.
package fit

import "math"

// Mode mirrors template.FitMode without importing the model package,
// keeping fit a leaf library.
type Mode string

const (
	Cover   Mode = "cover"
	Contain Mode = "contain"
	Fill    Mode = "fill"
)

// Rect is an axis-aligned box in canvas coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Placement describes how a natural-size image maps into a target box:
// scale factors, the top-left draw offset in canvas coordinates, the scaled
// draw size in whole pixels, and an optional clip rectangle (cover only).
type Placement struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
	DrawW, DrawH     int
	Clip             *Rect
}

// Compute returns the placement of an image with the given natural size into
// box under mode. ok is false when either dimension is non-positive, in which
// case the placement is unusable and the caller should fall back.
func Compute(naturalW, naturalH float64, box Rect, mode Mode) (Placement, bool) {
	if naturalW <= 0 || naturalH <= 0 || box.W <= 0 || box.H <= 0 {
		return Placement{}, false
	}

	switch mode {
	case Fill:
		// Non-uniform scale; the image exactly fills the box.
		return Placement{
			ScaleX:  box.W / naturalW,
			ScaleY:  box.H / naturalH,
			OffsetX: box.X,
			OffsetY: box.Y,
			DrawW:   roundPx(box.W),
			DrawH:   roundPx(box.H),
		}, true

	case Contain:
		// Uniform scale, centered, letterboxed; no clipping.
		s := math.Min(box.W/naturalW, box.H/naturalH)
		dw, dh := naturalW*s, naturalH*s
		return Placement{
			ScaleX:  s,
			ScaleY:  s,
			OffsetX: box.X + (box.W-dw)/2,
			OffsetY: box.Y + (box.H-dh)/2,
			DrawW:   roundPx(dw),
			DrawH:   roundPx(dh),
		}, true

	default:
		// Cover: uniform scale, centered, overflow hidden by a clip equal
		// to the box in absolute coordinates. Unknown modes behave as cover.
		s := math.Max(box.W/naturalW, box.H/naturalH)
		dw, dh := naturalW*s, naturalH*s
		clip := box
		return Placement{
			ScaleX:  s,
			ScaleY:  s,
			OffsetX: box.X + (box.W-dw)/2,
			OffsetY: box.Y + (box.H-dh)/2,
			DrawW:   roundPx(dw),
			DrawH:   roundPx(dh),
			Clip:    &clip,
		}, true
	}
}

// roundPx rounds a scaled dimension to whole pixels, never below 1.
func roundPx(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
