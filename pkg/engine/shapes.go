// shapes.go — Vector shape rasterization. Shapes render into a local tile via
// a scanline rasterizer; strokes are built geometrically (outer ring paths,
// segment quads with round joins) so fills and strokes share one fill rule.
package engine

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/vector"

	"github.com/pinforge/pinrender/pkg/template"
)

// bezierKappa approximates a quarter circle with one cubic segment.
const bezierKappa = 0.5522847498

// ── Recorded path ──

type segOp int

const (
	opLine segOp = iota
	opCube
)

type pathSeg struct {
	op  segOp
	pts [3][2]float64 // line: pts[0] is the endpoint; cube: ctrl1, ctrl2, endpoint
}

// shapePath is a single closed subpath that can rasterize forward or
// reversed. Reversed emission flips winding, which is how ring strokes
// (outer minus inner) are cut.
type shapePath struct {
	start  [2]float64
	segs   []pathSeg
	closed bool
}

func (p *shapePath) moveTo(x, y float64) { p.start = [2]float64{x, y} }

func (p *shapePath) lineTo(x, y float64) {
	p.segs = append(p.segs, pathSeg{op: opLine, pts: [3][2]float64{{x, y}}})
}

func (p *shapePath) cubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.segs = append(p.segs, pathSeg{op: opCube, pts: [3][2]float64{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

func (p *shapePath) end(seg pathSeg) [2]float64 {
	if seg.op == opLine {
		return seg.pts[0]
	}
	return seg.pts[2]
}

func (p *shapePath) rasterize(z *vector.Rasterizer) {
	z.MoveTo(float32(p.start[0]), float32(p.start[1]))
	for _, s := range p.segs {
		switch s.op {
		case opLine:
			z.LineTo(float32(s.pts[0][0]), float32(s.pts[0][1]))
		case opCube:
			z.CubeTo(
				float32(s.pts[0][0]), float32(s.pts[0][1]),
				float32(s.pts[1][0]), float32(s.pts[1][1]),
				float32(s.pts[2][0]), float32(s.pts[2][1]))
		}
	}
	z.ClosePath()
}

func (p *shapePath) rasterizeReversed(z *vector.Rasterizer) {
	if len(p.segs) == 0 {
		return
	}
	last := p.end(p.segs[len(p.segs)-1])
	z.MoveTo(float32(last[0]), float32(last[1]))
	for i := len(p.segs) - 1; i >= 0; i-- {
		s := p.segs[i]
		var to [2]float64
		if i == 0 {
			to = p.start
		} else {
			to = p.end(p.segs[i-1])
		}
		switch s.op {
		case opLine:
			z.LineTo(float32(to[0]), float32(to[1]))
		case opCube:
			z.CubeTo(
				float32(s.pts[1][0]), float32(s.pts[1][1]),
				float32(s.pts[0][0]), float32(s.pts[0][1]),
				float32(to[0]), float32(to[1]))
		}
	}
	z.ClosePath()
}

// flatten samples the subpath into a polyline for geometric stroking.
func (p *shapePath) flatten() [][2]float64 {
	const steps = 16
	pts := [][2]float64{p.start}
	cur := p.start
	for _, s := range p.segs {
		switch s.op {
		case opLine:
			pts = append(pts, s.pts[0])
			cur = s.pts[0]
		case opCube:
			for i := 1; i <= steps; i++ {
				t := float64(i) / steps
				pts = append(pts, cubicAt(cur, s.pts[0], s.pts[1], s.pts[2], t))
			}
			cur = s.pts[2]
		}
	}
	if p.closed {
		pts = append(pts, p.start)
	}
	return pts
}

func cubicAt(p0, c1, c2, p1 [2]float64, t float64) [2]float64 {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	return [2]float64{
		a*p0[0] + b*c1[0] + c*c2[0] + d*p1[0],
		a*p0[1] + b*c1[1] + c*c2[1] + d*p1[1],
	}
}

// ── Geometry builders ──

func roundedRectPath(x, y, w, h, r float64) *shapePath {
	p := &shapePath{closed: true}
	if r <= 0 {
		p.moveTo(x, y)
		p.lineTo(x+w, y)
		p.lineTo(x+w, y+h)
		p.lineTo(x, y+h)
		return p
	}
	if max := math.Min(w, h) / 2; r > max {
		r = max
	}
	k := bezierKappa * r
	p.moveTo(x+r, y)
	p.lineTo(x+w-r, y)
	p.cubeTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.lineTo(x+w, y+h-r)
	p.cubeTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.lineTo(x+r, y+h)
	p.cubeTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.lineTo(x, y+r)
	p.cubeTo(x, y+r-k, x+r-k, y, x+r, y)
	return p
}

func ellipsePath(cx, cy, rx, ry float64) *shapePath {
	p := &shapePath{closed: true}
	kx, ky := bezierKappa*rx, bezierKappa*ry
	p.moveTo(cx+rx, cy)
	p.cubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.cubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.cubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.cubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	return p
}

// ── Rasterization onto a tile ──

func newTile(w, h int) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func fillPaths(tile *image.NRGBA, c color.NRGBA, paths ...*shapePath) {
	z := vector.NewRasterizer(tile.Bounds().Dx(), tile.Bounds().Dy())
	for _, p := range paths {
		p.rasterize(z)
	}
	z.Draw(tile, tile.Bounds(), image.NewUniform(c), image.Point{})
}

// strokeRing fills the ring between an outer path and a reversed inner path.
func strokeRing(tile *image.NRGBA, c color.NRGBA, outer, inner *shapePath) {
	z := vector.NewRasterizer(tile.Bounds().Dx(), tile.Bounds().Dy())
	outer.rasterize(z)
	inner.rasterizeReversed(z)
	z.Draw(tile, tile.Bounds(), image.NewUniform(c), image.Point{})
}

// strokePolyline thickens a polyline geometrically: one quad per segment plus
// round joins at interior vertices.
func strokePolyline(tile *image.NRGBA, c color.NRGBA, pts [][2]float64, width float64) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	half := width / 2
	z := vector.NewRasterizer(tile.Bounds().Dx(), tile.Bounds().Dy())

	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*half, dx/length*half
		z.MoveTo(float32(a[0]+nx), float32(a[1]+ny))
		z.LineTo(float32(b[0]+nx), float32(b[1]+ny))
		z.LineTo(float32(b[0]-nx), float32(b[1]-ny))
		z.LineTo(float32(a[0]-nx), float32(a[1]-ny))
		z.ClosePath()
	}
	// Round joins.
	for i := 1; i+1 < len(pts); i++ {
		ellipsePath(pts[i][0], pts[i][1], half, half).rasterize(z)
	}
	z.Draw(tile, tile.Bounds(), image.NewUniform(c), image.Point{})
}

// ── Shape node construction ──

// buildShapeTile rasterizes a shape element into a tile. ok is false when the
// shape has nothing to draw (blank path data) and should be skipped.
func buildShapeTile(el *template.ShapeElement) (tile *image.NRGBA, pos image.Point, ok bool) {
	strokeWidth := el.StrokeWidth
	fillColor, hasFill := ParseColor(el.Fill)
	strokeColor, hasStroke := ParseColor(el.Stroke)
	hasStroke = hasStroke && strokeWidth > 0

	// A shape with neither fill nor stroke would be an invisible node;
	// default to a black fill so the fallback is visible, not silent.
	if !hasFill && !hasStroke {
		fillColor, hasFill = color.NRGBA{A: 0xff}, true
	}

	headLen := arrowHeadLength(strokeWidth)
	margin := int(math.Ceil(math.Max(strokeWidth, headLen))) + 2
	w := int(math.Ceil(el.Width)) + 2*margin
	h := int(math.Ceil(el.Height)) + 2*margin
	tile = newTile(w, h)
	pos = image.Point{X: int(math.Round(el.X)) - margin, Y: int(math.Round(el.Y)) - margin}
	m := float64(margin)

	switch el.ShapeType {
	case template.ShapeRect:
		if hasFill {
			fillPaths(tile, fillColor, roundedRectPath(m, m, el.Width, el.Height, el.CornerRadius))
		}
		if hasStroke {
			outer := roundedRectPath(m-strokeWidth/2, m-strokeWidth/2, el.Width+strokeWidth, el.Height+strokeWidth, ringRadius(el.CornerRadius, strokeWidth/2))
			inner := roundedRectPath(m+strokeWidth/2, m+strokeWidth/2, el.Width-strokeWidth, el.Height-strokeWidth, ringRadius(el.CornerRadius, -strokeWidth/2))
			strokeRing(tile, strokeColor, outer, inner)
		}

	case template.ShapeCircle:
		cx, cy := m+el.Width/2, m+el.Height/2
		rx, ry := el.Width/2, el.Height/2
		if hasFill {
			fillPaths(tile, fillColor, ellipsePath(cx, cy, rx, ry))
		}
		if hasStroke {
			strokeRing(tile, strokeColor,
				ellipsePath(cx, cy, rx+strokeWidth/2, ry+strokeWidth/2),
				ellipsePath(cx, cy, math.Max(rx-strokeWidth/2, 0), math.Max(ry-strokeWidth/2, 0)))
		}

	case template.ShapeLine:
		strokePolyline(tile, lineColor(strokeColor, hasStroke, fillColor), shapePoints(el, m), lineWidth(strokeWidth))

	case template.ShapeArrow:
		drawArrow(tile, lineColor(strokeColor, hasStroke, fillColor), shapePoints(el, m), lineWidth(strokeWidth))

	case template.ShapePath:
		if strings.TrimSpace(el.PathData) == "" {
			return nil, image.Point{}, false
		}
		subpaths, err := parseSVGPath(el.PathData, m, m)
		if err != nil || len(subpaths) == 0 {
			return nil, image.Point{}, false
		}
		if hasFill {
			fillPaths(tile, fillColor, subpaths...)
		}
		if hasStroke {
			for _, sp := range subpaths {
				strokePolyline(tile, strokeColor, sp.flatten(), strokeWidth)
			}
		}

	default:
		// Unknown shape types degrade to a plain rect.
		fillPaths(tile, fillColor, roundedRectPath(m, m, el.Width, el.Height, 0))
	}

	return tile, pos, true
}

// shapePoints returns the element-local polyline, offset into tile space.
// Without explicit points, a horizontal line across the box is assumed.
func shapePoints(el *template.ShapeElement, m float64) [][2]float64 {
	if len(el.Points) < 2 {
		return [][2]float64{{m, m + el.Height/2}, {m + el.Width, m + el.Height/2}}
	}
	pts := make([][2]float64, len(el.Points))
	for i, p := range el.Points {
		pts[i] = [2]float64{p.X + m, p.Y + m}
	}
	return pts
}

func drawArrow(tile *image.NRGBA, c color.NRGBA, pts [][2]float64, width float64) {
	if len(pts) < 2 {
		return
	}
	head := arrowHeadLength(width)
	tip := pts[len(pts)-1]
	prev := pts[len(pts)-2]
	dx, dy := tip[0]-prev[0], tip[1]-prev[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		strokePolyline(tile, c, pts, width)
		return
	}
	ux, uy := dx/length, dy/length

	// Shorten the shaft so it doesn't poke through the head.
	shaft := append([][2]float64{}, pts...)
	shaft[len(shaft)-1] = [2]float64{tip[0] - ux*head*0.8, tip[1] - uy*head*0.8}
	strokePolyline(tile, c, shaft, width)

	base := [2]float64{tip[0] - ux*head, tip[1] - uy*head}
	px, py := -uy*head*0.5, ux*head*0.5
	tri := &shapePath{closed: true}
	tri.moveTo(tip[0], tip[1])
	tri.lineTo(base[0]+px, base[1]+py)
	tri.lineTo(base[0]-px, base[1]-py)
	fillPaths(tile, c, tri)
}

func arrowHeadLength(strokeWidth float64) float64 {
	return math.Max(10, lineWidth(strokeWidth)*3.5)
}

func lineWidth(strokeWidth float64) float64 {
	if strokeWidth <= 0 {
		return 2
	}
	return strokeWidth
}

func lineColor(stroke color.NRGBA, hasStroke bool, fill color.NRGBA) color.NRGBA {
	if hasStroke {
		return stroke
	}
	return fill
}

// ringRadius offsets a corner radius for the outer/inner ring paths.
func ringRadius(r, delta float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Max(r+delta, 0)
}
