// validator.go — Template sanity checks. Returns warnings, never fatal errors,
// except for duplicate element IDs which break incremental-render identity.
package template

import "fmt"

// Validate checks a template for conditions that would break rendering.
// The only hard error is a duplicate element ID; everything else degrades
// gracefully at render time and is reported as a warning.
func Validate(t *Template) ([]string, error) {
	var warnings []string

	seen := make(map[string]int, len(t.Elements))
	for i, el := range t.Elements {
		b := el.Base()
		if b.ID == "" {
			warnings = append(warnings, fmt.Sprintf("element %d has no id; one will be assigned", i))
			continue
		}
		if prev, ok := seen[b.ID]; ok {
			return warnings, fmt.Errorf("duplicate element id %q (elements %d and %d)", b.ID, prev, i)
		}
		seen[b.ID] = i

		if b.Width < 0 || b.Height < 0 {
			warnings = append(warnings, fmt.Sprintf("element %q has negative size %gx%g", b.ID, b.Width, b.Height))
		}
		if b.Opacity != nil && (*b.Opacity < 0 || *b.Opacity > 1) {
			warnings = append(warnings, fmt.Sprintf("element %q opacity %g outside [0,1]; will be clamped", b.ID, *b.Opacity))
		}

		switch e := el.(type) {
		case *TextElement:
			if e.AutoFit && e.MinFontSize > e.FontSize {
				warnings = append(warnings, fmt.Sprintf("text %q minFontSize %g exceeds fontSize %g", b.ID, e.MinFontSize, e.FontSize))
			}
			for _, cs := range e.CharacterStyles {
				if cs.Start > cs.End {
					warnings = append(warnings, fmt.Sprintf("text %q character style range [%d,%d] is inverted", b.ID, cs.Start, cs.End))
				}
			}
		case *ImageElement:
			switch e.FitMode {
			case FitCover, FitContain, FitFill, "":
			default:
				warnings = append(warnings, fmt.Sprintf("image %q unknown fit mode %q; cover will be used", b.ID, e.FitMode))
			}
		case *ShapeElement:
			if e.ShapeType == ShapePath && e.PathData == "" {
				warnings = append(warnings, fmt.Sprintf("shape %q has empty path data and will be skipped", b.ID))
			}
			if (e.ShapeType == ShapeLine || e.ShapeType == ShapeArrow) && len(e.Points) < 2 {
				warnings = append(warnings, fmt.Sprintf("shape %q needs at least 2 points", b.ID))
			}
		case *FrameElement:
			// Child layout is not rendered; nothing to validate.
		}
	}

	return warnings, nil
}

// DynamicFields lists the dynamic field names referenced by a template's
// elements, in element order. Used by field-mapping tooling.
func DynamicFields(t *Template) []string {
	var fields []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}

	for _, el := range t.Elements {
		switch e := el.(type) {
		case *TextElement:
			if e.IsDynamic {
				add(e.DynamicField)
			}
		case *ImageElement:
			if e.IsDynamic {
				add(e.DynamicSource)
			}
		}
	}
	return fields
}
