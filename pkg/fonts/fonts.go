// Package fonts provides the font registry: embedded Go faces by weight and
// style, custom TTF/OTF registration from a font-loading collaborator, and a
// face cache. One face serves both measurement and painting — auto-fit
// measures with the exact faces the painter draws with, which is what makes
// measured layout reproducible at render time.
package fonts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const dpi = 72 // canvas pixels are CSS pixels; 1pt == 1px at 72 DPI

type variantKey struct {
	family string // lowercase
	bold   bool
	italic bool
}

type faceKey struct {
	family string
	size   float64
	bold   bool
	italic bool
}

// Registry caches parsed fonts and derived faces. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	fonts map[variantKey]*opentype.Font
	faces map[faceKey]font.Face
}

// NewRegistry returns a registry preloaded with the embedded Go font in all
// four weight/style variants, registered under the empty family name.
func NewRegistry() *Registry {
	r := &Registry{
		fonts: make(map[variantKey]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
	// Embedded fallbacks can't fail to parse.
	r.mustRegister("", false, false, goregular.TTF)
	r.mustRegister("", true, false, gobold.TTF)
	r.mustRegister("", false, true, goitalic.TTF)
	r.mustRegister("", true, true, gobolditalic.TTF)
	return r
}

func (r *Registry) mustRegister(family string, bold, italic bool, data []byte) {
	if err := r.RegisterVariant(family, bold, italic, data); err != nil {
		panic(fmt.Sprintf("fonts: embedded font: %v", err))
	}
}

// RegisterTTF registers font data as the regular variant of family.
func (r *Registry) RegisterTTF(family string, data []byte) error {
	return r.RegisterVariant(family, false, false, data)
}

// RegisterVariant registers font data for a specific weight/style of family.
func (r *Registry) RegisterVariant(family string, bold, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	r.mu.Lock()
	r.fonts[variantKey{family: strings.ToLower(family), bold: bold, italic: italic}] = f
	r.mu.Unlock()
	return nil
}

// Has reports whether family is registered in any variant.
func (r *Registry) Has(family string) bool {
	key := strings.ToLower(family)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for vk := range r.fonts {
		if vk.family == key {
			return true
		}
	}
	return false
}

// Face returns a cached font.Face for the given properties. Unknown families
// and missing variants fall back: first to the family's regular variant, then
// to the embedded Go font at the requested weight/style.
func (r *Registry) Face(family string, size float64, weight, style string) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size %g is not positive", size)
	}
	bold := IsBold(weight)
	italic := strings.EqualFold(style, "italic") || strings.EqualFold(style, "oblique")
	fam := strings.ToLower(family)

	key := faceKey{family: fam, size: size, bold: bold, italic: italic}

	r.mu.RLock()
	if face, ok := r.faces[key]; ok {
		r.mu.RUnlock()
		return face, nil
	}
	r.mu.RUnlock()

	parsed := r.lookup(fam, bold, italic)
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("face %q %g: %w", family, size, err)
	}

	r.mu.Lock()
	// Idempotent last-write-wins under concurrent construction.
	r.faces[key] = face
	r.mu.Unlock()
	return face, nil
}

// lookup finds the best parsed font for the variant, walking the fallback
// chain. The embedded regular variant always exists, so this never fails.
func (r *Registry) lookup(family string, bold, italic bool) *opentype.Font {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, vk := range []variantKey{
		{family: family, bold: bold, italic: italic},
		{family: family, bold: false, italic: false},
		{family: "", bold: bold, italic: italic},
	} {
		if f, ok := r.fonts[vk]; ok {
			return f
		}
	}
	return r.fonts[variantKey{}]
}

// IsBold interprets CSS-style font weights: "bold", "bolder", or a numeric
// weight of 600 and up.
func IsBold(weight string) bool {
	switch strings.ToLower(strings.TrimSpace(weight)) {
	case "bold", "bolder":
		return true
	case "", "normal", "lighter":
		return false
	}
	if n, err := strconv.Atoi(strings.TrimSpace(weight)); err == nil {
		return n >= 600
	}
	return false
}
