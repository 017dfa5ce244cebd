// builder.go — Scene builder: one typed element plus resolved row data in,
// one scene node out. The switch over element kinds is exhaustive; a kind
// this builder doesn't know is a hard error, never a silent no-op.
package engine

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/subst"
	"github.com/pinforge/pinrender/pkg/template"
	"github.com/pinforge/pinrender/pkg/textfit"
)

// buildNode constructs the scene node for one element. A (nil, nil) return
// means the element is intentionally skipped (e.g. blank path data).
func (s *Session) buildNode(ctx context.Context, el template.Element, rowData template.RowData, fieldMapping template.FieldMapping, preloaded map[string]*image.NRGBA) (Node, error) {
	switch e := el.(type) {
	case *template.TextElement:
		return s.buildTextNode(e, rowData, fieldMapping)
	case *template.ImageElement:
		return s.buildImageNode(ctx, e, rowData, fieldMapping, preloaded), nil
	case *template.ShapeElement:
		tile, pos, ok := buildShapeTile(e)
		if !ok {
			s.Logger.Warn("shape has no drawable geometry, skipping",
				"elementId", e.ID, "shapeType", string(e.ShapeType))
			return nil, nil
		}
		return &tileNode{elementID: e.ID, tile: tile, pos: pos, opacity: e.OpacityValue()}, nil
	case *template.FrameElement:
		return s.buildFrameNode(e), nil
	default:
		return nil, fmt.Errorf("unhandled element kind %q", el.Kind())
	}
}

func (s *Session) buildTextNode(el *template.TextElement, rowData template.RowData, fieldMapping template.FieldMapping) (Node, error) {
	text := el.Text
	if el.IsDynamic && el.DynamicField != "" {
		if v, ok := subst.DynamicValue(el.DynamicField, rowData, fieldMapping); ok {
			text = v
		}
	}
	text = subst.Substitute(text, rowData, fieldMapping)
	text = subst.ApplyTextTransform(text, string(el.TextTransform))

	fontSize := el.FontSize
	if el.AutoFit {
		fontSize = textfit.CalculateAutoFitSize(s.Fonts, textfit.Options{
			Text:          text,
			Width:         el.Width,
			Height:        el.Height,
			MaxFontSize:   el.FontSize,
			MinFontSize:   el.MinFontSize,
			FontFamily:    el.FontFamily,
			FontWeight:    el.FontWeight,
			FontStyle:     el.FontStyle,
			LineHeight:    el.LineHeight,
			LetterSpacing: el.LetterSpacing,
			Align:         el.Align,
		}, s.Memo)
	}

	node, err := s.layoutTextNode(el, text, fontSize, el.OpacityValue())
	if err != nil {
		return nil, fmt.Errorf("layout text %q: %w", el.ID, err)
	}
	return node, nil
}

// buildImageNode is total: resolution failures already produced a placeholder
// inside the cache layer, so a node always comes back.
func (s *Session) buildImageNode(ctx context.Context, el *template.ImageElement, rowData template.RowData, fieldMapping template.FieldMapping, preloaded map[string]*image.NRGBA) Node {
	src, ok := preloaded[el.ID]
	if !ok {
		// Not pre-loaded (or pre-load failed): resolve synchronously.
		url := imagecache.ResolveDynamicImageURL(el, rowData, fieldMapping)
		src = s.Cache.Resolve(ctx, url, boxPx(el.Width), boxPx(el.Height))
	}
	tile, pos := buildImageTile(el, src)
	return &tileNode{elementID: el.ID, tile: tile, pos: pos, opacity: el.OpacityValue()}
}

// buildFrameNode paints the frame as a styled placeholder rect; child
// auto-layout belongs to the editor, not the render core.
func (s *Session) buildFrameNode(el *template.FrameElement) Node {
	shape := &template.ShapeElement{
		ElementBase:  el.ElementBase,
		ShapeType:    template.ShapeRect,
		Fill:         el.Fill,
		Stroke:       el.Stroke,
		StrokeWidth:  el.StrokeWidth,
		CornerRadius: el.CornerRadius,
	}
	if shape.Fill == "" && shape.Stroke == "" {
		shape.Fill = "#f2f2f2"
		shape.Stroke = "#cccccc"
		shape.StrokeWidth = 1
	}
	tile, pos, _ := buildShapeTile(shape)
	return &tileNode{elementID: el.ID, tile: tile, pos: pos, opacity: el.OpacityValue()}
}

func boxPx(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
