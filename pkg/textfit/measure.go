// Package textfit provides deterministic text measurement, word wrapping, and
// auto-fit font sizing. Wrapping here is the single source of truth: the
// painter lays out text with the same WrapLines the auto-fit search probes
// with, so a size that measures as fitting renders as fitting.
package textfit

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
)

// FaceSource supplies font faces for measurement. *fonts.Registry satisfies it.
type FaceSource interface {
	Face(family string, size float64, weight, style string) (font.Face, error)
}

// MeasureString returns the advance width of s in pixels, including
// letter-spacing between runes. A pure function of (face, s, letterSpacing).
func MeasureString(face font.Face, s string, letterSpacing float64) float64 {
	w := float64(font.MeasureString(face, s)) / 64
	if letterSpacing != 0 {
		if n := utf8.RuneCountInString(s); n > 1 {
			w += letterSpacing * float64(n-1)
		}
	}
	return w
}

// WrapLines breaks text into lines fitting maxWidth. Embedded newlines are
// hard breaks; within a segment, greedy word wrap on spaces. A single word
// wider than maxWidth is kept whole on its own line (it overflows rather
// than breaking mid-word).
func WrapLines(face font.Face, text string, maxWidth, letterSpacing float64) []string {
	var lines []string
	for _, segment := range strings.Split(text, "\n") {
		lines = append(lines, wrapSegment(face, segment, maxWidth, letterSpacing)...)
	}
	return lines
}

func wrapSegment(face font.Face, segment string, maxWidth, letterSpacing float64) []string {
	if maxWidth <= 0 {
		return []string{segment}
	}
	words := strings.Fields(segment)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if MeasureString(face, candidate, letterSpacing) > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

// BlockHeight is the rendered height of text wrapped at maxWidth: line count
// times the line pitch (fontSize × lineHeight).
func BlockHeight(face font.Face, text string, maxWidth, fontSize, lineHeight, letterSpacing float64) float64 {
	lines := WrapLines(face, text, maxWidth, letterSpacing)
	return float64(len(lines)) * fontSize * lineHeight
}
