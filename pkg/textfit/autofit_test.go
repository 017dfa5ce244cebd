package textfit

import (
	"testing"
	"time"

	"github.com/pinforge/pinrender/pkg/fonts"
)

var registry = fonts.NewRegistry()

func fitsAt(t *testing.T, opts Options, size float64) bool {
	t.Helper()
	face, err := registry.Face(opts.FontFamily, size, opts.FontWeight, opts.FontStyle)
	if err != nil {
		t.Fatalf("face at %g: %v", size, err)
	}
	lh := opts.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	return BlockHeight(face, opts.Text, opts.Width, size, lh, opts.LetterSpacing) <= opts.Height
}

func TestAutoFitEmptyTextReturnsMax(t *testing.T) {
	got := CalculateAutoFitSize(registry, Options{Text: "   ", Width: 100, Height: 100, MaxFontSize: 48}, nil)
	if got != 48 {
		t.Errorf("got %g, want 48", got)
	}
}

func TestAutoFitShortTextKeepsMax(t *testing.T) {
	opts := Options{Text: "Hi", Width: 500, Height: 200, MaxFontSize: 36, MinFontSize: 8}
	if got := CalculateAutoFitSize(registry, opts, nil); got != 36 {
		t.Errorf("got %g, want max 36", got)
	}
}

func TestAutoFitOverflowReturnsMin(t *testing.T) {
	long := "This is a very long paragraph of text that cannot possibly fit into a tiny box no matter how small the font gets within the allowed range of sizes."
	opts := Options{Text: long, Width: 40, Height: 10, MaxFontSize: 48, MinFontSize: 8}
	if got := CalculateAutoFitSize(registry, opts, nil); got != 8 {
		t.Errorf("got %g, want best-effort min 8", got)
	}
}

// The returned size v is maximal at half-unit granularity: the text fits at
// v and overflows at v+0.5 (unless v is already the maximum).
func TestAutoFitIsMaximal(t *testing.T) {
	opts := Options{
		Text:        "Hello World this text should shrink a bit to fit its box nicely",
		Width:       200,
		Height:      100,
		MaxFontSize: 72,
		MinFontSize: 8,
		LineHeight:  1.2,
	}
	v := CalculateAutoFitSize(registry, opts, nil)
	if v < opts.MinFontSize || v > opts.MaxFontSize {
		t.Fatalf("size %g outside [%g, %g]", v, opts.MinFontSize, opts.MaxFontSize)
	}
	if !fitsAt(t, opts, v) {
		t.Errorf("text does not fit at returned size %g", v)
	}
	if v+0.5 <= opts.MaxFontSize && fitsAt(t, opts, v+0.5) {
		t.Errorf("text still fits at %g; returned size %g is not maximal", v+0.5, v)
	}
}

// Re-running auto-fit on the same inputs yields the same size (the search is
// deterministic and the memo transparent).
func TestAutoFitIdempotent(t *testing.T) {
	opts := Options{
		Text:        "Weeknight Pasta Ideas for Busy Families",
		Width:       300,
		Height:      120,
		MaxFontSize: 64,
		MinFontSize: 10,
	}
	memo := NewMemo()
	first := CalculateAutoFitSize(registry, opts, memo)
	for i := 0; i < 3; i++ {
		if got := CalculateAutoFitSize(registry, opts, memo); got != first {
			t.Fatalf("run %d: got %g, want %g", i, got, first)
		}
	}
	if got := CalculateAutoFitSize(registry, opts, nil); got != first {
		t.Errorf("without memo: got %g, want %g", got, first)
	}
}

func TestAutoFitHardBreaksForceSmaller(t *testing.T) {
	base := Options{Text: "alpha beta gamma delta", Width: 250, Height: 80, MaxFontSize: 72, MinFontSize: 8}
	broken := base
	broken.Text = "alpha\nbeta\ngamma\ndelta"

	a := CalculateAutoFitSize(registry, base, nil)
	b := CalculateAutoFitSize(registry, broken, nil)
	if b > a {
		t.Errorf("forced line breaks got %g, larger than unbroken %g", b, a)
	}
}

func TestAutoFitMinGreaterThanMax(t *testing.T) {
	// Degenerate range normalizes to min.
	opts := Options{Text: "x", Width: 100, Height: 100, MaxFontSize: 10, MinFontSize: 20}
	if got := CalculateAutoFitSize(registry, opts, nil); got != 20 {
		t.Errorf("got %g, want 20", got)
	}
}

// TTL churn and re-inserts must not grow the order slice past the live
// entry count.
func TestMemoOrderStaysBounded(t *testing.T) {
	now := time.Now()
	m := NewMemo()
	m.now = func() time.Time { return now }

	key := Options{Text: "churn", Width: 1, Height: 1, MaxFontSize: 10}
	for i := 0; i < 500; i++ {
		m.Put(key, float64(i))
		now = now.Add(memoTTL + time.Second)
		if _, ok := m.Get(key); ok {
			t.Fatal("expired entry returned")
		}
	}
	if len(m.order) != 0 {
		t.Errorf("order holds %d slots after churn, want 0", len(m.order))
	}

	// Refreshing a live key keeps one slot.
	for i := 0; i < 10; i++ {
		m.Put(key, float64(i))
	}
	if len(m.order) != 1 {
		t.Errorf("order holds %d slots for one live key, want 1", len(m.order))
	}
}

func TestMemoTTLAndEviction(t *testing.T) {
	now := time.Now()
	m := NewMemo()
	m.now = func() time.Time { return now }

	key := Options{Text: "a", Width: 1, Height: 1, MaxFontSize: 10}
	m.Put(key, 9.5)
	if v, ok := m.Get(key); !ok || v != 9.5 {
		t.Fatalf("fresh get = (%g, %v)", v, ok)
	}

	now = now.Add(memoTTL + time.Second)
	if _, ok := m.Get(key); ok {
		t.Error("expired entry still returned")
	}

	// Overflow evicts the oldest entries but keeps the newest.
	for i := 0; i < memoCapacity+1; i++ {
		m.Put(Options{Text: "t", Width: float64(i), Height: 1, MaxFontSize: 10}, 1)
	}
	if m.Len() > memoCapacity {
		t.Errorf("memo holds %d entries, cap %d", m.Len(), memoCapacity)
	}
	newest := Options{Text: "t", Width: float64(memoCapacity), Height: 1, MaxFontSize: 10}
	if _, ok := m.Get(newest); !ok {
		t.Error("newest entry evicted")
	}
	oldest := Options{Text: "t", Width: 0, Height: 1, MaxFontSize: 10}
	if _, ok := m.Get(oldest); ok {
		t.Error("oldest entry survived eviction")
	}
}

func TestWrapLines(t *testing.T) {
	face, err := registry.Face("", 16, "", "")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("hard breaks preserved", func(t *testing.T) {
		lines := WrapLines(face, "one\ntwo\nthree", 1000, 0)
		if len(lines) != 3 {
			t.Fatalf("got %d lines %q, want 3", len(lines), lines)
		}
	})

	t.Run("greedy wrap", func(t *testing.T) {
		lines := WrapLines(face, "aaa bbb ccc ddd", 60, 0)
		if len(lines) < 2 {
			t.Fatalf("got %q, expected wrapping at width 60", lines)
		}
		for _, line := range lines {
			if w := MeasureString(face, line, 0); w > 60 {
				t.Errorf("line %q measures %g, over 60", line, w)
			}
		}
	})

	t.Run("overlong word kept whole", func(t *testing.T) {
		lines := WrapLines(face, "antidisestablishmentarianism", 10, 0)
		if len(lines) != 1 || lines[0] != "antidisestablishmentarianism" {
			t.Errorf("got %q, want the single unbroken word", lines)
		}
	})

	t.Run("empty segment yields one line", func(t *testing.T) {
		lines := WrapLines(face, "a\n\nb", 1000, 0)
		if len(lines) != 3 || lines[1] != "" {
			t.Errorf("got %q, want [a,, b]", lines)
		}
	})
}

func TestMeasureStringLetterSpacing(t *testing.T) {
	face, err := registry.Face("", 20, "", "")
	if err != nil {
		t.Fatal(err)
	}
	base := MeasureString(face, "abcd", 0)
	spaced := MeasureString(face, "abcd", 2)
	if want := base + 6; spaced != want {
		t.Errorf("spaced = %g, want %g (base %g + 3 gaps of 2)", spaced, want, base)
	}
	if MeasureString(face, "x", 5) != MeasureString(face, "x", 0) {
		t.Error("single rune must not get letter spacing")
	}
}
