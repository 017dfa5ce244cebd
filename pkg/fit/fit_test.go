package fit

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeFill(t *testing.T) {
	// 400x200 natural into a 100x300 box: non-uniform stretch.
	p, ok := Compute(400, 200, Rect{X: 10, Y: 20, W: 100, H: 300}, Fill)
	if !ok {
		t.Fatal("expected ok")
	}
	if !almostEqual(p.ScaleX, 0.25) || !almostEqual(p.ScaleY, 1.5) {
		t.Errorf("scale = (%g, %g), want (0.25, 1.5)", p.ScaleX, p.ScaleY)
	}
	if p.OffsetX != 10 || p.OffsetY != 20 {
		t.Errorf("offset = (%g, %g), want (10, 20)", p.OffsetX, p.OffsetY)
	}
	if p.DrawW != 100 || p.DrawH != 300 {
		t.Errorf("draw = (%d, %d), want (100, 300)", p.DrawW, p.DrawH)
	}
	if p.Clip != nil {
		t.Error("fill must not clip")
	}
}

func TestComputeCover(t *testing.T) {
	// 400x200 (2:1) into 100x100: scale by max(0.25, 0.5) = 0.5,
	// draws 200x100 centered, clipped to the box.
	p, ok := Compute(400, 200, Rect{X: 0, Y: 0, W: 100, H: 100}, Cover)
	if !ok {
		t.Fatal("expected ok")
	}
	if !almostEqual(p.ScaleX, 0.5) || !almostEqual(p.ScaleY, 0.5) {
		t.Errorf("scale = (%g, %g), want uniform 0.5", p.ScaleX, p.ScaleY)
	}
	if p.DrawW != 200 || p.DrawH != 100 {
		t.Errorf("draw = (%d, %d), want (200, 100)", p.DrawW, p.DrawH)
	}
	// Horizontal overflow is centered: offset -50.
	if !almostEqual(p.OffsetX, -50) || !almostEqual(p.OffsetY, 0) {
		t.Errorf("offset = (%g, %g), want (-50, 0)", p.OffsetX, p.OffsetY)
	}
	if p.Clip == nil {
		t.Fatal("cover must clip")
	}
	if *p.Clip != (Rect{X: 0, Y: 0, W: 100, H: 100}) {
		t.Errorf("clip = %+v, want the box", *p.Clip)
	}
	// Scaled size covers the box in both dimensions.
	if float64(p.DrawW) < 100 || float64(p.DrawH) < 100 {
		t.Error("cover must cover the box")
	}
}

func TestComputeContain(t *testing.T) {
	// 400x200 (2:1) into 100x100: scale by min(0.25, 0.5) = 0.25,
	// draws 100x50 centered with vertical letterbox.
	p, ok := Compute(400, 200, Rect{X: 10, Y: 10, W: 100, H: 100}, Contain)
	if !ok {
		t.Fatal("expected ok")
	}
	if !almostEqual(p.ScaleX, 0.25) || !almostEqual(p.ScaleY, 0.25) {
		t.Errorf("scale = (%g, %g), want uniform 0.25", p.ScaleX, p.ScaleY)
	}
	if p.DrawW != 100 || p.DrawH != 50 {
		t.Errorf("draw = (%d, %d), want (100, 50)", p.DrawW, p.DrawH)
	}
	if !almostEqual(p.OffsetX, 10) || !almostEqual(p.OffsetY, 35) {
		t.Errorf("offset = (%g, %g), want (10, 35)", p.OffsetX, p.OffsetY)
	}
	if p.Clip != nil {
		t.Error("contain must not clip")
	}
	// Entire image stays inside the box.
	if p.OffsetX < 10 || p.OffsetY < 10 ||
		p.OffsetX+float64(p.DrawW) > 110 || p.OffsetY+float64(p.DrawH) > 110 {
		t.Error("contain image escapes the box")
	}
}

func TestComputeUnknownModeBehavesAsCover(t *testing.T) {
	a, _ := Compute(300, 300, Rect{W: 100, H: 50}, Mode("stretch-weird"))
	b, _ := Compute(300, 300, Rect{W: 100, H: 50}, Cover)
	if a.ScaleX != b.ScaleX || a.DrawW != b.DrawW || (a.Clip == nil) != (b.Clip == nil) {
		t.Errorf("unknown mode placement %+v differs from cover %+v", a, b)
	}
}

func TestComputeDegenerate(t *testing.T) {
	cases := []struct {
		name   string
		nw, nh float64
		box    Rect
	}{
		{"zero natural width", 0, 100, Rect{W: 10, H: 10}},
		{"negative natural height", 100, -1, Rect{W: 10, H: 10}},
		{"zero box", 100, 100, Rect{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Compute(tc.nw, tc.nh, tc.box, Cover); ok {
				t.Error("expected not ok")
			}
		})
	}
}

func TestComputeMinimumOnePixel(t *testing.T) {
	p, ok := Compute(1000, 1, Rect{W: 5, H: 5}, Contain)
	if !ok {
		t.Fatal("expected ok")
	}
	if p.DrawH < 1 {
		t.Errorf("draw height %d, want at least 1", p.DrawH)
	}
}
