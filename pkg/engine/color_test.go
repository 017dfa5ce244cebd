package engine

import (
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#ff0000", color.NRGBA{R: 255, A: 255}, true},
		{"#00ff00", color.NRGBA{G: 255, A: 255}, true},
		{"#abc", color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 255}, true},
		{"#11223344", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, true},
		{"FF0000", color.NRGBA{R: 255, A: 255}, true}, // hash optional
		{"", color.NRGBA{}, false},
		{"none", color.NRGBA{}, false},
		{"transparent", color.NRGBA{}, false},
		// Malformed values paint opaque black so the typo is visible.
		{"#zzz", color.NRGBA{A: 255}, true},
		{"#12345", color.NRGBA{A: 255}, true},
		{"red-ish", color.NRGBA{A: 255}, true},
	}
	for _, tc := range cases {
		got, ok := ParseColor(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseColor(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseColor(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
