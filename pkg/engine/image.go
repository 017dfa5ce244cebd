// image.go — Image scene node construction: crop, fit placement, clipping,
// corner radius and rotation, all baked into the node's tile.
package engine

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"github.com/pinforge/pinrender/pkg/fit"
	"github.com/pinforge/pinrender/pkg/template"
)

// buildImageTile maps decoded pixels into the element's box per its fit mode.
func buildImageTile(el *template.ImageElement, src *image.NRGBA) (*image.NRGBA, image.Point) {
	src = cropSource(el, src)

	nw := float64(src.Bounds().Dx())
	nh := float64(src.Bounds().Dy())
	box := fit.Rect{X: el.X, Y: el.Y, W: el.Width, H: el.Height}

	placement, ok := fit.Compute(nw, nh, box, fit.Mode(el.FitMode))
	if !ok {
		tile := newTile(int(math.Ceil(el.Width)), int(math.Ceil(el.Height)))
		return tile, image.Point{X: int(math.Round(el.X)), Y: int(math.Round(el.Y))}
	}

	tile := imaging.Resize(src, placement.DrawW, placement.DrawH, imaging.Lanczos)
	posX, posY := placement.OffsetX, placement.OffsetY

	// Cover clips to the box; fill/contain take the rounded-rect clip instead.
	if clip := placement.Clip; clip != nil {
		x0 := clampInt(int(math.Round(clip.X-placement.OffsetX)), 0, tile.Bounds().Dx())
		y0 := clampInt(int(math.Round(clip.Y-placement.OffsetY)), 0, tile.Bounds().Dy())
		cw := clampInt(int(math.Round(clip.W)), 1, tile.Bounds().Dx()-x0)
		ch := clampInt(int(math.Round(clip.H)), 1, tile.Bounds().Dy()-y0)
		tile = imaging.Crop(tile, image.Rect(x0, y0, x0+cw, y0+ch))
		posX, posY = clip.X, clip.Y
	} else if el.CornerRadius > 0 {
		tile = applyRoundMask(tile, el.CornerRadius)
	}

	if el.Rotation != 0 {
		cx := posX + float64(tile.Bounds().Dx())/2
		cy := posY + float64(tile.Bounds().Dy())/2
		// imaging rotates counter-clockwise; element rotation is clockwise.
		tile = imaging.Rotate(tile, -el.Rotation, color.NRGBA{})
		posX = cx - float64(tile.Bounds().Dx())/2
		posY = cy - float64(tile.Bounds().Dy())/2
	}

	return tile, image.Point{X: int(math.Round(posX)), Y: int(math.Round(posY))}
}

// cropSource applies the element's crop rectangle in natural pixels.
func cropSource(el *template.ImageElement, src *image.NRGBA) *image.NRGBA {
	c := el.Crop
	if c == nil || c.Width <= 0 || c.Height <= 0 {
		return src
	}
	b := src.Bounds()
	x0 := clampInt(int(math.Round(c.X)), 0, b.Dx()-1)
	y0 := clampInt(int(math.Round(c.Y)), 0, b.Dy()-1)
	x1 := clampInt(int(math.Round(c.X+c.Width)), x0+1, b.Dx())
	y1 := clampInt(int(math.Round(c.Y+c.Height)), y0+1, b.Dy())
	return imaging.Crop(src, image.Rect(x0, y0, x1, y1))
}

// applyRoundMask clips a tile to a rounded rectangle of its own bounds.
func applyRoundMask(tile *image.NRGBA, radius float64) *image.NRGBA {
	b := tile.Bounds()
	mask := image.NewAlpha(b)
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	roundedRectPath(0, 0, float64(b.Dx()), float64(b.Dy()), radius).rasterize(z)
	z.Draw(mask, b, image.Opaque, image.Point{})

	out := image.NewNRGBA(b)
	draw.DrawMask(out, b, tile, b.Min, mask, b.Min, draw.Src)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
