// Package template defines the pin template data model: a fixed-size canvas
// plus an ordered list of typed elements (text, image, shape, frame), with
// per-row dynamic field binding for batch generation.
package template

import (
	"encoding/json"
	"fmt"
)

// ── Element kinds ──

// Kind discriminates the element union.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
	KindFrame Kind = "frame"
)

// FitMode governs how a natural-size image maps into its target box.
type FitMode string

const (
	FitCover   FitMode = "cover"
	FitContain FitMode = "contain"
	FitFill    FitMode = "fill"
)

// ShapeType selects the shape geometry.
type ShapeType string

const (
	ShapeRect   ShapeType = "rect"
	ShapeCircle ShapeType = "circle"
	ShapeLine   ShapeType = "line"
	ShapeArrow  ShapeType = "arrow"
	ShapePath   ShapeType = "path"
)

// TextTransform is a case transform applied after field substitution.
type TextTransform string

const (
	TransformNone       TextTransform = "none"
	TransformUppercase  TextTransform = "uppercase"
	TransformLowercase  TextTransform = "lowercase"
	TransformCapitalize TextTransform = "capitalize"
)

// ── Element union ──

// Element is the closed union of renderable template elements.
// The scene builder switches exhaustively over the four concrete types;
// an unknown type is a construction error, never a silent no-op.
type Element interface {
	Base() *ElementBase
	Kind() Kind

	isElement()
}

// ElementBase holds the fields common to every element. ID is the stable
// identity key used to correlate existing vs incoming elements across
// incremental renders; it must be unique within a template and never change.
type ElementBase struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Rotation float64  `json:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"` // nil = 1
	Locked   bool     `json:"locked,omitempty"`
	Visible  *bool    `json:"visible,omitempty"` // nil = true
	ZIndex   int      `json:"zIndex"`
}

// IsVisible reports whether the element should be rendered.
func (b *ElementBase) IsVisible() bool {
	return b.Visible == nil || *b.Visible
}

// OpacityValue returns the element opacity clamped to [0,1].
func (b *ElementBase) OpacityValue() float64 {
	if b.Opacity == nil {
		return 1
	}
	o := *b.Opacity
	if o < 0 {
		return 0
	}
	if o > 1 {
		return 1
	}
	return o
}

// CharacterStyle overrides text styling for an absolute rune range.
// Start and End are inclusive indices into the element's final text.
type CharacterStyle struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Fill       string  `json:"fill,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontStyle  string  `json:"fontStyle,omitempty"`
	Decoration string  `json:"decoration,omitempty"` // "underline" or "line-through"
	Background string  `json:"background,omitempty"`
}

// TextElement is a wrapping text box. Text may contain {{field}} placeholders.
type TextElement struct {
	ElementBase

	Text            string           `json:"text"`
	FontFamily      string           `json:"fontFamily,omitempty"`
	FontSize        float64          `json:"fontSize"`
	FontWeight      string           `json:"fontWeight,omitempty"` // "normal", "bold" or numeric
	FontStyle       string           `json:"fontStyle,omitempty"`  // "normal" or "italic"
	Fill            string           `json:"fill,omitempty"`
	Align           string           `json:"align,omitempty"` // "left", "center", "right"
	LineHeight      float64          `json:"lineHeight,omitempty"`
	LetterSpacing   float64          `json:"letterSpacing,omitempty"`
	TextTransform   TextTransform    `json:"textTransform,omitempty"`
	AutoFit         bool             `json:"autoFit,omitempty"`
	MinFontSize     float64          `json:"minFontSize,omitempty"`
	CharacterStyles []CharacterStyle `json:"characterStyles,omitempty"`
	IsDynamic       bool             `json:"isDynamic,omitempty"`
	DynamicField    string           `json:"dynamicField,omitempty"`
}

// CropRect crops the natural image before fit placement, in natural pixels.
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageElement places a remote or data-URL image into a box under a fit mode.
type ImageElement struct {
	ElementBase

	ImageURL          string    `json:"imageUrl"`
	FitMode           FitMode   `json:"fitMode,omitempty"`
	CornerRadius      float64   `json:"cornerRadius,omitempty"`
	Crop              *CropRect `json:"crop,omitempty"`
	IsDynamic         bool      `json:"isDynamic,omitempty"`
	DynamicSource     string    `json:"dynamicSource,omitempty"`
	IsCanvaBackground bool      `json:"isCanvaBackground,omitempty"`
}

// Point is a 2D coordinate used by line and arrow shapes.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeElement is a vector primitive.
type ShapeElement struct {
	ElementBase

	ShapeType    ShapeType `json:"shapeType"`
	Fill         string    `json:"fill,omitempty"` // "none" = transparent
	Stroke       string    `json:"stroke,omitempty"`
	StrokeWidth  float64   `json:"strokeWidth,omitempty"`
	Points       []Point   `json:"points,omitempty"`   // line, arrow
	PathData     string    `json:"pathData,omitempty"` // SVG path string
	CornerRadius float64   `json:"cornerRadius,omitempty"`
}

// FrameElement is an auto-layout container. Child layout is owned by the
// editor; at render time a frame paints as a styled placeholder rect.
type FrameElement struct {
	ElementBase

	Direction    string   `json:"direction,omitempty"` // "row" or "column"
	Gap          float64  `json:"gap,omitempty"`
	Padding      float64  `json:"padding,omitempty"`
	Align        string   `json:"align,omitempty"`
	Children     []string `json:"children,omitempty"`
	Fill         string   `json:"fill,omitempty"`
	Stroke       string   `json:"stroke,omitempty"`
	StrokeWidth  float64  `json:"strokeWidth,omitempty"`
	CornerRadius float64  `json:"cornerRadius,omitempty"`
}

func (e *TextElement) Base() *ElementBase  { return &e.ElementBase }
func (e *ImageElement) Base() *ElementBase { return &e.ElementBase }
func (e *ShapeElement) Base() *ElementBase { return &e.ElementBase }
func (e *FrameElement) Base() *ElementBase { return &e.ElementBase }

func (e *TextElement) Kind() Kind  { return KindText }
func (e *ImageElement) Kind() Kind { return KindImage }
func (e *ShapeElement) Kind() Kind { return KindShape }
func (e *FrameElement) Kind() Kind { return KindFrame }

func (e *TextElement) isElement()  {}
func (e *ImageElement) isElement() {}
func (e *ShapeElement) isElement() {}
func (e *FrameElement) isElement() {}

// ── JSON decoding ──

// elementEnvelope peeks the discriminator before decoding the full payload.
type elementEnvelope struct {
	Type Kind `json:"type"`
}

// UnmarshalElement decodes one element from its JSON form, dispatching on
// the "type" discriminator.
func UnmarshalElement(raw json.RawMessage) (Element, error) {
	var env elementEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("element envelope: %w", err)
	}

	var el Element
	switch env.Type {
	case KindText:
		el = &TextElement{}
	case KindImage:
		el = &ImageElement{}
	case KindShape:
		el = &ShapeElement{}
	case KindFrame:
		el = &FrameElement{}
	default:
		return nil, fmt.Errorf("unknown element type %q", env.Type)
	}

	if err := json.Unmarshal(raw, el); err != nil {
		return nil, fmt.Errorf("decode %s element: %w", env.Type, err)
	}
	return el, nil
}

// MarshalElement encodes an element with its "type" discriminator.
func MarshalElement(el Element) ([]byte, error) {
	body, err := json.Marshal(el)
	if err != nil {
		return nil, err
	}
	// Splice the discriminator into the object.
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("element did not encode to an object")
	}
	head := []byte(fmt.Sprintf(`{"type":%q`, el.Kind()))
	if string(body) == "{}" {
		return append(head, '}'), nil
	}
	head = append(head, ',')
	return append(head, body[1:]...), nil
}

// ElementList decodes a JSON array of discriminated elements.
type ElementList []Element

// UnmarshalJSON implements json.Unmarshaler.
func (l *ElementList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(ElementList, 0, len(raws))
	for i, raw := range raws {
		el, err := UnmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	*l = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l ElementList) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(l))
	for _, el := range l {
		b, err := MarshalElement(el)
		if err != nil {
			return nil, err
		}
		raws = append(raws, b)
	}
	return json.Marshal(raws)
}
