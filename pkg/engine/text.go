// text.go — Rich text layout and painting. Plain text wraps through
// textfit.WrapLines-compatible measurement; character-style ranges are laid
// out as styled runs so one line can mix faces, colors and decorations.
package engine

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/pinforge/pinrender/pkg/template"
	"github.com/pinforge/pinrender/pkg/textfit"
)

// styledRun is a maximal run of text sharing one style.
type styledRun struct {
	text          string
	face          font.Face
	color         color.NRGBA
	background    *color.NRGBA
	decoration    string // "", "underline", "line-through"
	size          float64
	letterSpacing float64
}

// layoutLine is one wrapped line of styled runs.
type layoutLine struct {
	runs  []styledRun
	width float64
}

// textNode paints wrapped, aligned, styled text into its box.
type textNode struct {
	elementID string
	lines     []layoutLine
	x, y      float64
	width     float64
	align     string
	ascent    float64
	descent   float64
	pitch     float64 // baseline-to-baseline advance
}

func (n *textNode) ElementID() string { return n.elementID }

func (n *textNode) Paint(dst *image.NRGBA) {
	for i, line := range n.lines {
		baseline := n.y + n.ascent + float64(i)*n.pitch

		x := n.x
		switch n.align {
		case "center":
			x += (n.width - line.width) / 2
		case "right":
			x += n.width - line.width
		}

		for _, run := range line.runs {
			w := textfit.MeasureString(run.face, run.text, run.letterSpacing)

			if run.background != nil {
				top := int(math.Floor(baseline - n.ascent))
				bottom := int(math.Ceil(baseline + n.descent))
				fillRect(dst, image.Rect(int(math.Floor(x)), top, int(math.Ceil(x+w)), bottom), *run.background)
			}

			drawRun(dst, run, x, baseline)

			switch run.decoration {
			case "underline":
				th := decorationThickness(run.size)
				y0 := int(math.Round(baseline + math.Max(2, run.size*0.08)))
				fillRect(dst, image.Rect(int(x), y0, int(math.Ceil(x+w)), y0+th), run.color)
			case "line-through":
				th := decorationThickness(run.size)
				y0 := int(math.Round(baseline - run.size*0.3))
				fillRect(dst, image.Rect(int(x), y0, int(math.Ceil(x+w)), y0+th), run.color)
			}

			x += w
		}
	}
}

func decorationThickness(size float64) int {
	th := int(math.Round(size / 14))
	if th < 1 {
		th = 1
	}
	return th
}

// drawRun paints one run. Non-zero letter-spacing draws rune by rune with an
// extra advance so painted width matches measured width exactly.
func drawRun(dst *image.NRGBA, run styledRun, x, baseline float64) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{run.color},
		Face: run.face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	if run.letterSpacing == 0 {
		d.DrawString(run.text)
		return
	}
	spacing := fixed.Int26_6(run.letterSpacing * 64)
	for _, r := range run.text {
		d.DrawString(string(r))
		d.Dot.X += spacing
	}
}

func fillRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(dst, r, &image.Uniform{c}, image.Point{}, draw.Over)
}

// ── Layout ──

// runStyle is the resolved per-rune style before segmentation.
type runStyle struct {
	size       float64
	weight     string
	style      string
	fill       string
	decoration string
	background string
}

// layoutTextNode builds the scene node for a text element whose final text
// and font size are already resolved.
func (s *Session) layoutTextNode(el *template.TextElement, text string, fontSize, opacity float64) (*textNode, error) {
	baseFace, err := s.Fonts.Face(el.FontFamily, fontSize, el.FontWeight, el.FontStyle)
	if err != nil {
		return nil, err
	}
	metrics := baseFace.Metrics()

	runs, err := s.buildStyledRuns(el, text, fontSize, opacity)
	if err != nil {
		return nil, err
	}

	node := &textNode{
		elementID: el.ID,
		x:         el.X,
		y:         el.Y,
		width:     el.Width,
		align:     el.Align,
		ascent:    float64(metrics.Ascent) / 64,
		descent:   float64(metrics.Descent) / 64,
		pitch:     fontSize * el.LineHeight,
	}
	for _, forced := range splitForcedLines(runs) {
		node.lines = append(node.lines, wrapRuns(forced, el.Width)...)
	}
	return node, nil
}

// buildStyledRuns segments text into maximal same-style runs, applying
// CharacterStyle overrides by inclusive rune range.
func (s *Session) buildStyledRuns(el *template.TextElement, text string, fontSize, opacity float64) ([]styledRun, error) {
	runes := []rune(text)
	base := runStyle{
		size:   fontSize,
		weight: el.FontWeight,
		style:  el.FontStyle,
		fill:   el.Fill,
	}

	styleAt := func(i int) runStyle {
		st := base
		for _, cs := range el.CharacterStyles {
			if i < cs.Start || i > cs.End {
				continue
			}
			if cs.FontSize > 0 {
				st.size = cs.FontSize
			}
			if cs.FontWeight != "" {
				st.weight = cs.FontWeight
			}
			if cs.FontStyle != "" {
				st.style = cs.FontStyle
			}
			if cs.Fill != "" {
				st.fill = cs.Fill
			}
			if cs.Decoration != "" {
				st.decoration = cs.Decoration
			}
			if cs.Background != "" {
				st.background = cs.Background
			}
		}
		return st
	}

	var out []styledRun
	for start := 0; start < len(runes); {
		st := styleAt(start)
		end := start + 1
		for end < len(runes) && styleAt(end) == st {
			end++
		}

		face, err := s.Fonts.Face(el.FontFamily, st.size, st.weight, st.style)
		if err != nil {
			return nil, err
		}
		fill, ok := ParseColor(st.fill)
		if !ok {
			fill = color.NRGBA{A: 0xff}
		}
		run := styledRun{
			text:          string(runes[start:end]),
			face:          face,
			color:         scaleAlpha(fill, opacity),
			decoration:    st.decoration,
			size:          st.size,
			letterSpacing: el.LetterSpacing,
		}
		if bg, ok := ParseColor(st.background); ok {
			bg = scaleAlpha(bg, opacity)
			run.background = &bg
		}
		out = append(out, run)
		start = end
	}
	return out, nil
}

// splitForcedLines splits runs at embedded newlines. An empty text still
// yields one empty line so the node occupies its box.
func splitForcedLines(runs []styledRun) [][]styledRun {
	lines := [][]styledRun{nil}
	for _, run := range runs {
		parts := strings.Split(run.text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part == "" {
				continue
			}
			seg := run
			seg.text = part
			last := len(lines) - 1
			lines[last] = append(lines[last], seg)
		}
	}
	return lines
}

// wrapRuns greedily word-wraps one forced line of styled runs to maxWidth,
// preserving each word's style. Adjacent same-style words coalesce into one
// run before measuring, so a single-style line is measured as one whole
// string — the same measurement WrapLines makes for the auto-fit probes,
// letter-spacing and kerning included.
func wrapRuns(runs []styledRun, maxWidth float64) []layoutLine {
	var words []styledRun
	for _, run := range runs {
		for _, w := range strings.Fields(run.text) {
			seg := run
			seg.text = w
			words = append(words, seg)
		}
	}
	if len(words) == 0 {
		return []layoutLine{{}}
	}

	measure := func(runs []styledRun) float64 {
		var w float64
		for _, r := range runs {
			w += textfit.MeasureString(r.face, r.text, r.letterSpacing)
		}
		return w
	}

	var (
		lines   []layoutLine
		current []styledRun
	)
	flush := func() {
		lines = append(lines, layoutLine{runs: current, width: measure(current)})
		current = nil
	}

	for _, word := range words {
		candidate := word
		if len(current) > 0 {
			candidate.text = " " + candidate.text
		}
		trial := coalesceRuns(append(append([]styledRun{}, current...), candidate))
		if maxWidth > 0 && measure(trial) > maxWidth && len(current) > 0 {
			flush()
			trial = []styledRun{word}
		}
		current = trial
	}
	if len(current) > 0 {
		flush()
	}
	return lines
}

// coalesceRuns merges adjacent runs that share one style.
func coalesceRuns(runs []styledRun) []styledRun {
	var out []styledRun
	for _, r := range runs {
		if n := len(out); n > 0 && sameRunStyle(out[n-1], r) {
			out[n-1].text += r.text
			continue
		}
		out = append(out, r)
	}
	return out
}

func sameRunStyle(a, b styledRun) bool {
	if a.face != b.face || a.color != b.color || a.decoration != b.decoration ||
		a.size != b.size || a.letterSpacing != b.letterSpacing {
		return false
	}
	if (a.background == nil) != (b.background == nil) {
		return false
	}
	return a.background == nil || *a.background == *b.background
}
