package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/template"
)

func testSession() *Session {
	return NewSession(imagecache.New(imagecache.NewDirectFetcher(), nil), nil, nil)
}

func testConfig() template.RenderConfig {
	return template.RenderConfig{Width: 200, Height: 300, BackgroundColor: "#ffffff"}
}

func textEl(id, text string) *template.TextElement {
	return &template.TextElement{
		ElementBase: template.ElementBase{ID: id, X: 10, Y: 10, Width: 150, Height: 60},
		Text:        text,
		FontSize:    20,
		Fill:        "#000000",
		LineHeight:  1.2,
	}
}

func shapeEl(id string) *template.ShapeElement {
	return &template.ShapeElement{
		ElementBase: template.ElementBase{ID: id, X: 0, Y: 100, Width: 200, Height: 100},
		ShapeType:   template.ShapeRect,
		Fill:        "#ff0000",
	}
}

func render(t *testing.T, s *Session, surf *Surface, elements []template.Element) {
	t.Helper()
	if err := s.RenderTemplate(context.Background(), surf, elements, surf.Config(), nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRenderBasicScene(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())
	render(t, s, surf, []template.Element{textEl("t1", "Hello"), shapeEl("s1")})

	if surf.NodeCount() != 2 {
		t.Fatalf("node count = %d, want 2", surf.NodeCount())
	}
	img := surf.Image()
	// The shape band is opaque red.
	if got := img.NRGBAAt(100, 150); got.R != 255 || got.G != 0 {
		t.Errorf("shape pixel = %+v, want red", got)
	}
	// Above the band the white background shows.
	if got := img.NRGBAAt(190, 5); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("background pixel = %+v, want white", got)
	}
}

// Rendering the same element list twice leaves the scene untouched.
func TestRenderIncrementalStability(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())
	elements := []template.Element{textEl("t1", "Hello"), shapeEl("s1")}

	render(t, s, surf, elements)
	if added, removed := surf.LastDiff(); added != 2 || removed != 0 {
		t.Fatalf("first pass diff = (%d, %d), want (2, 0)", added, removed)
	}

	render(t, s, surf, elements)
	if added, removed := surf.LastDiff(); added != 0 || removed != 0 {
		t.Errorf("second pass diff = (%d, %d), want (0, 0)", added, removed)
	}
	if surf.NodeCount() != 2 {
		t.Errorf("node count = %d, want 2", surf.NodeCount())
	}
}

func TestRenderDiffByIdentity(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())

	render(t, s, surf, []template.Element{textEl("a", "one"), textEl("b", "two")})

	// "b" leaves, "c" arrives, "a" stays.
	render(t, s, surf, []template.Element{textEl("a", "one"), textEl("c", "three")})
	if added, removed := surf.LastDiff(); added != 1 || removed != 1 {
		t.Errorf("diff = (%d, %d), want (1, 1)", added, removed)
	}
	if surf.NodeCount() != 2 {
		t.Errorf("node count = %d, want 2", surf.NodeCount())
	}
}

func TestRenderInvisibleElementRemoved(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())
	el := shapeEl("s1")
	render(t, s, surf, []template.Element{el})
	if surf.NodeCount() != 1 {
		t.Fatal("expected one node")
	}

	hidden := false
	el.Visible = &hidden
	render(t, s, surf, []template.Element{el})
	if surf.NodeCount() != 0 {
		t.Errorf("node count = %d after hiding, want 0", surf.NodeCount())
	}
	if _, removed := surf.LastDiff(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// Hidden stays hidden: a second pass is a no-op.
	render(t, s, surf, []template.Element{el})
	if added, removed := surf.LastDiff(); added != 0 || removed != 0 {
		t.Errorf("diff = (%d, %d), want (0, 0)", added, removed)
	}
}

func TestRenderZOrder(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())

	// Both shapes cover the same area; the higher z-index paints last.
	bottom := shapeEl("bottom")
	bottom.Fill = "#0000ff"
	bottom.ZIndex = 5
	top := shapeEl("top")
	top.Fill = "#00ff00"
	top.ZIndex = 10

	// Deliberately supply them in reverse z order.
	render(t, s, surf, []template.Element{top, bottom})
	img := surf.Image()
	if got := img.NRGBAAt(100, 150); got.G != 255 || got.B != 0 {
		t.Errorf("top pixel = %+v, want green on top", got)
	}
}

func TestRenderDisposedSurface(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())
	surf.Dispose()
	err := s.RenderTemplate(context.Background(), surf, nil, testConfig(), nil, nil)
	if err != ErrSurfaceDisposed {
		t.Errorf("err = %v, want ErrSurfaceDisposed", err)
	}
	if err := s.RenderTemplate(context.Background(), nil, nil, testConfig(), nil, nil); err != ErrNoSurface {
		t.Errorf("err = %v, want ErrNoSurface", err)
	}
}

// An unreachable image degrades to a placeholder; the pass still succeeds and
// every other element renders.
func TestRenderImageFailureIsolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := testSession()
	surf := NewSurface(testConfig())
	img := &template.ImageElement{
		ElementBase: template.ElementBase{ID: "img", X: 0, Y: 0, Width: 100, Height: 100},
		ImageURL:    srv.URL + "/dead.png",
	}
	render(t, s, surf, []template.Element{img, shapeEl("s1")})

	if surf.NodeCount() != 2 {
		t.Fatalf("node count = %d, want 2 (placeholder + shape)", surf.NodeCount())
	}
	out := surf.Image()
	// Placeholder gray fill where the image was supposed to be; sampled off
	// the border, the diagonal cross and the centered label.
	if got := out.NRGBAAt(30, 20); got.R != 0xe5 {
		t.Errorf("placeholder pixel = %+v, want gray 0xe5", got)
	}
	// The shape painted regardless.
	if got := out.NRGBAAt(100, 150); got.R != 255 {
		t.Errorf("shape pixel = %+v, want red", got)
	}
}

func TestRenderImageFromDataURL(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	s := testSession()
	surf := NewSurface(testConfig())
	el := &template.ImageElement{
		ElementBase: template.ElementBase{ID: "img", X: 0, Y: 0, Width: 50, Height: 50},
		ImageURL:    "data:image/png;base64," + pngBase64(buf.Bytes()),
		FitMode:     template.FitFill,
	}
	render(t, s, surf, []template.Element{el})

	if got := surf.Image().NRGBAAt(25, 25); got.B != 255 {
		t.Errorf("image pixel = %+v, want blue", got)
	}
}

func pngBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestRenderRowSubstitution(t *testing.T) {
	s := testSession()
	row := template.RowData{"col": "Substituted"}
	mapping := template.FieldMapping{"title": "col"}

	tmpl := &template.Template{
		Canvas: testConfig(),
		Elements: template.ElementList{
			textEl("t", "{{title}}"),
		},
	}
	a, err := s.RenderToImage(context.Background(), tmpl, row, mapping)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.RenderToImage(context.Background(), tmpl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Same template, different row data: pixels must differ.
	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("substituted and empty-row renders are identical")
	}
}

// Byte-identical output across repeated sessions: the determinism contract.
func TestRenderDeterministic(t *testing.T) {
	tmpl := &template.Template{
		Canvas: testConfig(),
		Elements: template.ElementList{
			textEl("t", "Deterministic Output"),
			shapeEl("s"),
		},
	}
	a, err := testSession().RenderToImage(context.Background(), tmpl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testSession().RenderToImage(context.Background(), tmpl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two fresh sessions produced different pixels for the same input")
	}
}

func TestRenderOpacity(t *testing.T) {
	s := testSession()
	surf := NewSurface(testConfig())
	half := 0.5
	el := shapeEl("s1")
	el.Opacity = &half
	render(t, s, surf, []template.Element{el})

	got := surf.Image().NRGBAAt(100, 150)
	// 50% red over white: roughly (255, 127, 127).
	if got.R != 255 || got.G < 100 || got.G > 150 {
		t.Errorf("pixel = %+v, want half-blended red", got)
	}
}
