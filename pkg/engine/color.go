// color.go — Hex color parsing shared by the painter.
package engine

import (
	"image/color"
	"strconv"
	"strings"
)

// ParseColor parses #rgb, #rrggbb and #rrggbbaa. ok is false for "", "none"
// and "transparent" — a deliberate no-paint, distinct from a parse fallback.
// Malformed values return opaque black with ok=true so a typo'd fill is
// visible rather than silently dropped.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none", "transparent":
		return color.NRGBA{}, false
	}

	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		r := hexNibble(hex[0])
		g := hexNibble(hex[1])
		b := hexNibble(hex[2])
		return color.NRGBA{R: r*16 + r, G: g*16 + g, B: b*16 + b, A: 0xff}, true
	case 6:
		return color.NRGBA{R: hexByte(hex[0:2]), G: hexByte(hex[2:4]), B: hexByte(hex[4:6]), A: 0xff}, true
	case 8:
		return color.NRGBA{R: hexByte(hex[0:2]), G: hexByte(hex[2:4]), B: hexByte(hex[4:6]), A: hexByte(hex[6:8])}, true
	}
	return color.NRGBA{A: 0xff}, true
}

func hexByte(s string) uint8 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return uint8(v)
}

func hexNibble(c byte) uint8 {
	v, _ := strconv.ParseUint(string(c), 16, 8)
	return uint8(v)
}

// scaleAlpha multiplies a color's alpha by opacity in [0,1].
func scaleAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity >= 1 {
		return c
	}
	if opacity <= 0 {
		c.A = 0
		return c
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}
