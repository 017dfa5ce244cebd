// template.go — Template container, render config, and JSON load/parse.
package template

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oklog/ulid/v2"
)

// RenderConfig is canvas-level configuration, not owned by any element.
type RenderConfig struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Interactive     bool   `json:"interactive,omitempty"`
}

// FieldMapping maps a template field name (e.g. "text1") to a data column name.
type FieldMapping map[string]string

// RowData maps a data column name to its string value for one row.
type RowData map[string]string

// Template is one pin design: a canvas plus an ordered element list.
type Template struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Canvas   RenderConfig `json:"canvas"`
	Elements ElementList  `json:"elements"`
}

// NewElementID mints a stable element identity.
func NewElementID() string {
	return ulid.Make().String()
}

// Parse decodes a template from JSON and applies element defaults.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template JSON: %w", err)
	}
	ApplyDefaults(&t)
	return &t, nil
}

// Load reads and parses a template JSON file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ApplyDefaults fills sane fallbacks for canvas and element fields.
func ApplyDefaults(t *Template) {
	if t.Canvas.Width <= 0 {
		t.Canvas.Width = 1000
	}
	if t.Canvas.Height <= 0 {
		t.Canvas.Height = 1500
	}
	if t.Canvas.BackgroundColor == "" {
		t.Canvas.BackgroundColor = "#ffffff"
	}

	for _, el := range t.Elements {
		b := el.Base()
		if b.ID == "" {
			b.ID = NewElementID()
		}
		switch e := el.(type) {
		case *TextElement:
			applyTextDefaults(e)
		case *ImageElement:
			if e.FitMode == "" {
				e.FitMode = FitCover
			}
		case *ShapeElement:
			if e.ShapeType == "" {
				e.ShapeType = ShapeRect
			}
			if e.StrokeWidth < 0 {
				e.StrokeWidth = 0
			}
		case *FrameElement:
			if e.Direction == "" {
				e.Direction = "column"
			}
		}
	}
}

func applyTextDefaults(e *TextElement) {
	if e.FontSize <= 0 {
		e.FontSize = 24
	}
	if e.Fill == "" {
		e.Fill = "#000000"
	}
	if e.Align == "" {
		e.Align = "left"
	}
	if e.LineHeight <= 0 {
		e.LineHeight = 1.2
	}
	if e.TextTransform == "" {
		e.TextTransform = TransformNone
	}
	if e.MinFontSize <= 0 {
		e.MinFontSize = 8
	}
}
