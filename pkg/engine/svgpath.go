// svgpath.go — Minimal SVG path data parser: M L H V C S Q T Z in absolute
// and relative forms. Arcs (A) degrade to straight segments to their
// endpoint. Coordinates are element-local; (dx, dy) shifts them into tile
// space.
package engine

import (
	"fmt"
	"strconv"
	"strings"
)

type svgParser struct {
	tokens []string
	pos    int
}

// parseSVGPath parses path data into closed subpaths ready to rasterize.
func parseSVGPath(data string, dx, dy float64) ([]*shapePath, error) {
	p := &svgParser{tokens: tokenizePath(data)}

	var (
		subpaths []*shapePath
		cur      *shapePath
		x, y     float64 // current point
		sx, sy   float64 // subpath start
		lastCtrl [2]float64
		lastCmd  byte
	)

	flush := func() {
		if cur != nil && len(cur.segs) > 0 {
			subpaths = append(subpaths, cur)
		}
		cur = nil
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		var cmd byte
		if len(tok) == 1 && isPathCommand(tok[0]) {
			cmd = tok[0]
			p.pos++
		} else if lastCmd != 0 {
			// Implicit command repetition; M repeats as L. Z takes no
			// arguments, so a number after it cannot repeat anything.
			cmd = lastCmd
			switch cmd {
			case 'M':
				cmd = 'L'
			case 'm':
				cmd = 'l'
			case 'Z', 'z':
				return nil, fmt.Errorf("number %q after Z", tok)
			}
		} else {
			return nil, fmt.Errorf("path data starts with %q, not a command", tok)
		}
		rel := cmd >= 'a' && cmd <= 'z'
		abs := cmd
		if rel {
			abs = cmd - 'a' + 'A'
		}

		switch abs {
		case 'M':
			ex, ey, err := p.pair()
			if err != nil {
				return nil, err
			}
			if rel {
				ex, ey = x+ex, y+ey
			}
			flush()
			cur = &shapePath{}
			cur.moveTo(ex+dx, ey+dy)
			x, y = ex, ey
			sx, sy = ex, ey

		case 'L':
			ex, ey, err := p.pair()
			if err != nil {
				return nil, err
			}
			if rel {
				ex, ey = x+ex, y+ey
			}
			if cur == nil {
				return nil, fmt.Errorf("L before M")
			}
			cur.lineTo(ex+dx, ey+dy)
			x, y = ex, ey

		case 'H':
			ex, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				ex += x
			}
			if cur == nil {
				return nil, fmt.Errorf("H before M")
			}
			cur.lineTo(ex+dx, y+dy)
			x = ex

		case 'V':
			ey, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				ey += y
			}
			if cur == nil {
				return nil, fmt.Errorf("V before M")
			}
			cur.lineTo(x+dx, ey+dy)
			y = ey

		case 'C', 'S':
			var c1x, c1y float64
			var err error
			if abs == 'C' {
				c1x, c1y, err = p.pair()
				if err != nil {
					return nil, err
				}
				if rel {
					c1x, c1y = x+c1x, y+c1y
				}
			} else {
				// Smooth: reflect the previous control point.
				c1x, c1y = x, y
				if lastCmd == 'C' || lastCmd == 'c' || lastCmd == 'S' || lastCmd == 's' {
					c1x, c1y = 2*x-lastCtrl[0], 2*y-lastCtrl[1]
				}
			}
			c2x, c2y, err := p.pair()
			if err != nil {
				return nil, err
			}
			ex, ey, err := p.pair()
			if err != nil {
				return nil, err
			}
			if rel {
				c2x, c2y = x+c2x, y+c2y
				ex, ey = x+ex, y+ey
			}
			if cur == nil {
				return nil, fmt.Errorf("curve before M")
			}
			cur.cubeTo(c1x+dx, c1y+dy, c2x+dx, c2y+dy, ex+dx, ey+dy)
			lastCtrl = [2]float64{c2x, c2y}
			x, y = ex, ey

		case 'Q', 'T':
			var qx, qy float64
			var err error
			if abs == 'Q' {
				qx, qy, err = p.pair()
				if err != nil {
					return nil, err
				}
				if rel {
					qx, qy = x+qx, y+qy
				}
			} else {
				qx, qy = x, y
				if lastCmd == 'Q' || lastCmd == 'q' || lastCmd == 'T' || lastCmd == 't' {
					qx, qy = 2*x-lastCtrl[0], 2*y-lastCtrl[1]
				}
			}
			ex, ey, err := p.pair()
			if err != nil {
				return nil, err
			}
			if rel {
				ex, ey = x+ex, y+ey
			}
			if cur == nil {
				return nil, fmt.Errorf("curve before M")
			}
			// Quadratic expressed as an equivalent cubic.
			c1x, c1y := x+2.0/3.0*(qx-x), y+2.0/3.0*(qy-y)
			c2x, c2y := ex+2.0/3.0*(qx-ex), ey+2.0/3.0*(qy-ey)
			cur.cubeTo(c1x+dx, c1y+dy, c2x+dx, c2y+dy, ex+dx, ey+dy)
			lastCtrl = [2]float64{qx, qy}
			x, y = ex, ey

		case 'A':
			// rx ry rot large-arc sweep x y — approximated by its chord.
			for i := 0; i < 5; i++ {
				if _, err := p.number(); err != nil {
					return nil, err
				}
			}
			ex, ey, err := p.pair()
			if err != nil {
				return nil, err
			}
			if rel {
				ex, ey = x+ex, y+ey
			}
			if cur == nil {
				return nil, fmt.Errorf("A before M")
			}
			cur.lineTo(ex+dx, ey+dy)
			x, y = ex, ey

		case 'Z':
			if cur != nil {
				cur.closed = true
				x, y = sx, sy
			}

		default:
			return nil, fmt.Errorf("unsupported path command %q", string(cmd))
		}
		lastCmd = cmd
	}

	flush()
	return subpaths, nil
}

func (p *svgParser) number() (float64, error) {
	if p.pos >= len(p.tokens) {
		return 0, fmt.Errorf("path data ended mid-command")
	}
	tok := p.tokens[p.pos]
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("bad path number %q", tok)
	}
	p.pos++
	return v, nil
}

func (p *svgParser) pair() (float64, float64, error) {
	a, err := p.number()
	if err != nil {
		return 0, 0, err
	}
	b, err := p.number()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func isPathCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

// tokenizePath splits path data into command letters and numbers.
func tokenizePath(data string) []string {
	var tokens []string
	var num strings.Builder

	flushNum := func() {
		if num.Len() > 0 {
			tokens = append(tokens, num.String())
			num.Reset()
		}
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isPathCommand(c):
			flushNum()
			tokens = append(tokens, string(c))
		case c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flushNum()
		case c == '-' || c == '+':
			// A sign starts a new number unless it follows an exponent.
			if num.Len() > 0 {
				last := num.String()[num.Len()-1]
				if last != 'e' && last != 'E' {
					flushNum()
				}
			}
			num.WriteByte(c)
		case c == '.':
			// A second dot starts a new number ("1.5.5" is two numbers).
			if strings.Contains(num.String(), ".") {
				flushNum()
			}
			num.WriteByte(c)
		default:
			num.WriteByte(c)
		}
	}
	flushNum()
	return tokens
}
