// node.go — Scene nodes: engine-internal renderable objects, each tagged with
// its originating element ID for incremental identity matching.
package engine

import (
	"image"
	"image/color"
	"image/draw"
)

// Node is one renderable scene object.
type Node interface {
	// ElementID is the stable identity of the source element.
	ElementID() string
	// Paint composites the node onto the canvas.
	Paint(dst *image.NRGBA)
}

// ── Tile node ──

// tileNode is a pre-rendered pixel tile at a fixed position. Images, shapes,
// frames and placeholders all commit as tiles: the expensive work (decode,
// scale, rasterize, clip, rotate) happens once at construction, so repaints
// are cheap composites.
type tileNode struct {
	elementID string
	tile      *image.NRGBA
	pos       image.Point
	opacity   float64
}

func (n *tileNode) ElementID() string { return n.elementID }

func (n *tileNode) Paint(dst *image.NRGBA) {
	if n.tile == nil {
		return
	}
	r := n.tile.Bounds().Add(n.pos)
	if n.opacity >= 1 {
		draw.Draw(dst, r, n.tile, n.tile.Bounds().Min, draw.Over)
		return
	}
	if n.opacity <= 0 {
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(n.opacity*255 + 0.5)})
	draw.DrawMask(dst, r, n.tile, n.tile.Bounds().Min, mask, image.Point{}, draw.Over)
}
