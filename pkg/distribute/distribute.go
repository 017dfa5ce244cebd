// Package distribute maps CSV rows to templates in multi-template campaigns.
// Sequential and equal modes are pure functions of the row index; random uses
// a session-scoped seeded generator; csv_column reads the row itself. Every
// mode degrades with a warning instead of an error — the only fatal condition
// is an empty template list.
package distribute

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pinforge/pinrender/pkg/template"
)

// Mode selects the distribution policy.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeRandom     Mode = "random"
	ModeEqual      Mode = "equal"
	ModeCSVColumn  Mode = "csv_column"
)

// ErrNoTemplates is the only fatal distribution failure.
var ErrNoTemplates = errors.New("distribute: no templates supplied")

// templateColumns are the row columns consulted by csv_column mode, in order.
var templateColumns = []string{"template", "Template", "TEMPLATE", "template_id", "templateId"}

// Context is the campaign-level distribution state. One Context serves one
// generation session; Reseed makes random mode reproducible for previews.
type Context struct {
	Templates []*template.Template
	Mode      Mode
	TotalRows int

	rng *lcg
}

// Row is one CSV row with its position in the batch.
type Row struct {
	RowIndex int
	Data     template.RowData
}

// Result names the chosen template. Warning is set when a fallback was taken.
type Result struct {
	Template *template.Template
	Index    int
	Warning  string
}

// NewContext builds a distribution context seeded from the wall clock.
func NewContext(templates []*template.Template, mode Mode, totalRows int) *Context {
	return &Context{
		Templates: templates,
		Mode:      mode,
		TotalRows: totalRows,
		rng:       newLCG(uint32(time.Now().UnixNano())),
	}
}

// Reseed resets the random generator for reproducible previews.
func (c *Context) Reseed(seed uint32) {
	c.rng = newLCG(seed)
}

// SelectTemplate picks the template for one row.
func SelectTemplate(c *Context, row Row) (Result, error) {
	n := len(c.Templates)
	if n == 0 {
		return Result{}, ErrNoTemplates
	}
	if n == 1 {
		// Single template: every mode short-circuits to it.
		return Result{Template: c.Templates[0], Index: 0}, nil
	}

	switch c.Mode {
	case ModeSequential:
		idx := row.RowIndex % n
		return Result{Template: c.Templates[idx], Index: idx}, nil

	case ModeEqual:
		// ceil division; the last chunk absorbs any remainder. This is
		// deliberately a different remainder policy than sequential's
		// round-robin.
		chunk := (c.TotalRows + n - 1) / n
		if chunk < 1 {
			chunk = 1
		}
		idx := row.RowIndex / chunk
		if idx >= n {
			idx = n - 1
		}
		return Result{Template: c.Templates[idx], Index: idx}, nil

	case ModeRandom:
		if c.rng == nil {
			c.rng = newLCG(uint32(time.Now().UnixNano()))
		}
		idx := int(c.rng.next() % uint32(n))
		return Result{Template: c.Templates[idx], Index: idx}, nil

	case ModeCSVColumn:
		return selectByColumn(c, row), nil

	default:
		idx := row.RowIndex % n
		return Result{
			Template: c.Templates[idx],
			Index:    idx,
			Warning:  fmt.Sprintf("unknown distribution mode %q; using sequential", c.Mode),
		}, nil
	}
}

// selectByColumn matches the row's template column against the template list:
// exact short-id, exact name, substring name, then case-insensitive. Misses
// fall back to the first template with a warning, never an error.
func selectByColumn(c *Context, row Row) Result {
	var value string
	for _, col := range templateColumns {
		if v, ok := row.Data[col]; ok && strings.TrimSpace(v) != "" {
			value = strings.TrimSpace(v)
			break
		}
	}
	if value == "" {
		return Result{
			Template: c.Templates[0],
			Index:    0,
			Warning:  fmt.Sprintf("row %d has no template column; using %q", row.RowIndex, displayName(c.Templates[0])),
		}
	}

	if idx, ok := matchTemplate(c.Templates, value); ok {
		return Result{Template: c.Templates[idx], Index: idx}
	}
	return Result{
		Template: c.Templates[0],
		Index:    0,
		Warning:  fmt.Sprintf("row %d: no template matches %q; using %q", row.RowIndex, value, displayName(c.Templates[0])),
	}
}

func matchTemplate(templates []*template.Template, value string) (int, bool) {
	// Exact short id.
	for i, t := range templates {
		if shortID(t.ID) == value || t.ID == value {
			return i, true
		}
	}
	// Exact name.
	for i, t := range templates {
		if t.Name == value {
			return i, true
		}
	}
	// Substring of name.
	for i, t := range templates {
		if t.Name != "" && strings.Contains(t.Name, value) {
			return i, true
		}
	}
	// Case-insensitive name.
	for i, t := range templates {
		if strings.EqualFold(t.Name, value) {
			return i, true
		}
	}
	return 0, false
}

// shortID is the first id segment users see in the picker UI.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayName(t *template.Template) string {
	if t.Name != "" {
		return t.Name
	}
	return shortID(t.ID)
}

// ── Seeded generator ──

// lcg is a 32-bit linear congruential generator (Numerical Recipes
// constants). Deliberately not math/rand: the sequence must be stable across
// Go versions so a reseeded preview reproduces exactly.
type lcg struct {
	state uint32
}

func newLCG(seed uint32) *lcg {
	return &lcg{state: seed}
}

func (g *lcg) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state >> 1 // drop the weak low bit
}
