// autofit.go — Largest font size at which text wraps to fit its box.
package textfit

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultMinFontSize is the floor when Options.MinFontSize is unset.
const DefaultMinFontSize = 8

// Options describes one auto-fit query. All fields participate in memoization.
type Options struct {
	Text          string
	Width         float64
	Height        float64
	MaxFontSize   float64
	MinFontSize   float64
	FontFamily    string
	FontWeight    string
	FontStyle     string
	LineHeight    float64
	LetterSpacing float64
	Align         string
}

func (o *Options) normalize() {
	if o.MinFontSize <= 0 {
		o.MinFontSize = DefaultMinFontSize
	}
	if o.MaxFontSize < o.MinFontSize {
		o.MaxFontSize = o.MinFontSize
	}
	if o.LineHeight <= 0 {
		o.LineHeight = 1.2
	}
}

// CalculateAutoFitSize returns the largest size in [MinFontSize, MaxFontSize],
// at 0.5-unit granularity, whose wrapped height fits Options.Height. Empty
// text returns MaxFontSize. If even MinFontSize overflows, MinFontSize is
// returned as a documented best effort. Each probe re-measures with the real
// layout engine, so the result matches final render exactly. memo may be nil.
func CalculateAutoFitSize(src FaceSource, opts Options, memo *Memo) float64 {
	opts.normalize()

	if strings.TrimSpace(opts.Text) == "" {
		return opts.MaxFontSize
	}

	if memo != nil {
		if v, ok := memo.Get(opts); ok {
			return v
		}
	}

	size := searchSize(src, opts)

	if memo != nil {
		memo.Put(opts, size)
	}
	return size
}

func searchSize(src FaceSource, opts Options) float64 {
	fits := func(halfUnits int) bool {
		size := float64(halfUnits) / 2
		face, err := src.Face(opts.FontFamily, size, opts.FontWeight, opts.FontStyle)
		if err != nil {
			return false
		}
		h := BlockHeight(face, opts.Text, opts.Width, size, opts.LineHeight, opts.LetterSpacing)
		return h <= opts.Height
	}

	minH := toHalf(opts.MinFontSize)
	maxH := toHalf(opts.MaxFontSize)

	if !fits(minH) {
		return opts.MinFontSize // best effort; may still overflow
	}
	if fits(maxH) {
		return opts.MaxFontSize
	}

	// Narrow the initial bracket around an area-based estimate to cut probe
	// count, then verify the bracket edges; a miss widens back toward the
	// full range so the narrowing is an optimization, never a wrong answer.
	lo, hi := minH, maxH
	if est := estimateSize(opts); est > 0 {
		bl := clampHalf(toHalf(0.7*est), minH, maxH)
		bh := clampHalf(toHalf(1.3*est), minH, maxH)
		switch {
		case !fits(bl):
			hi = bl
		case fits(bh):
			lo = bh
		default:
			lo, hi = bl, bh
		}
	}

	// Invariant: fits(lo), !fits(hi).
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return float64(lo) / 2
}

// estimateSize is the closed-form area estimate sqrt(w*h/(chars*0.6)),
// shrunk for embedded hard line breaks which force extra lines.
func estimateSize(opts Options) float64 {
	chars := utf8.RuneCountInString(strings.ReplaceAll(opts.Text, "\n", ""))
	if chars == 0 {
		return 0
	}
	est := math.Sqrt(opts.Width * opts.Height / (float64(chars) * 0.6))
	if breaks := strings.Count(opts.Text, "\n"); breaks > 0 {
		est /= math.Sqrt(float64(breaks + 1))
	}
	return est
}

func toHalf(size float64) int {
	return int(math.Round(size * 2))
}

func clampHalf(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
