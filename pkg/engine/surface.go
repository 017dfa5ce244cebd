// surface.go — A render target holding the committed scene graph. The caller
// serializes render passes per surface; the surface itself takes no lock.
package engine

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/pinforge/pinrender/pkg/template"
)

// Surface is a render target: an off-screen canvas plus the scene nodes
// committed to it, in paint order. Interactive and headless surfaces behave
// identically — the flag only tells collaborators whether a human is watching.
type Surface struct {
	config   template.RenderConfig
	nodes    []Node
	byID     map[string]Node
	img      *image.NRGBA // last repaint; nil until first Repaint
	disposed bool

	lastAdded   int
	lastRemoved int
}

// NewSurface creates a surface with the given canvas configuration.
func NewSurface(cfg template.RenderConfig) *Surface {
	if cfg.Width <= 0 {
		cfg.Width = 1
	}
	if cfg.Height <= 0 {
		cfg.Height = 1
	}
	return &Surface{
		config: cfg,
		byID:   make(map[string]Node),
	}
}

// Dispose releases the surface; subsequent render calls fail.
func (s *Surface) Dispose() {
	s.disposed = true
	s.nodes = nil
	s.byID = nil
	s.img = nil
}

// Disposed reports whether Dispose was called.
func (s *Surface) Disposed() bool { return s.disposed }

// Config returns the current canvas configuration.
func (s *Surface) Config() template.RenderConfig { return s.config }

// setConfig updates canvas dimensions and background; the pixel buffer is
// rebuilt on the next repaint.
func (s *Surface) setConfig(cfg template.RenderConfig) {
	if cfg.Width > 0 && cfg.Height > 0 {
		s.config = cfg
		s.img = nil
	}
}

// has reports whether a node for elementID is committed.
func (s *Surface) has(elementID string) bool {
	_, ok := s.byID[elementID]
	return ok
}

// add appends a node to the end of the paint order.
func (s *Surface) add(n Node) {
	s.nodes = append(s.nodes, n)
	s.byID[n.ElementID()] = n
	s.img = nil
}

// removeByID detaches the node for elementID, preserving the relative order
// of the remaining nodes.
func (s *Surface) removeByID(elementID string) bool {
	if _, ok := s.byID[elementID]; !ok {
		return false
	}
	delete(s.byID, elementID)
	for i, n := range s.nodes {
		if n.ElementID() == elementID {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	s.img = nil
	return true
}

// NodeCount reports the number of committed scene nodes.
func (s *Surface) NodeCount() int { return len(s.nodes) }

// LastDiff reports how many nodes the most recent render pass added and
// removed. An unchanged element list yields (0, 0).
func (s *Surface) LastDiff() (added, removed int) {
	return s.lastAdded, s.lastRemoved
}

// Repaint redraws every committed node over the background, in paint order.
func (s *Surface) Repaint() {
	bg := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if c, ok := ParseColor(s.config.BackgroundColor); ok {
		bg = c
	} else if s.config.BackgroundColor != "" {
		bg = color.NRGBA{} // explicit transparent background
	}
	canvas := imaging.New(s.config.Width, s.config.Height, bg)
	for _, n := range s.nodes {
		n.Paint(canvas)
	}
	s.img = canvas
}

// Image returns the rendered canvas, repainting if the scene changed since
// the last repaint.
func (s *Surface) Image() *image.NRGBA {
	if s.img == nil {
		s.Repaint()
	}
	return s.img
}
