package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pinforge/pinrender/pkg/distribute"
	"github.com/pinforge/pinrender/pkg/engine"
	"github.com/pinforge/pinrender/pkg/export"
	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/template"
)

func testSession() *engine.Session {
	return engine.NewSession(imagecache.New(imagecache.NewDirectFetcher(), nil), nil, nil)
}

func testTemplate(id, fill string) *template.Template {
	return &template.Template{
		ID:     id,
		Canvas: template.RenderConfig{Width: 100, Height: 150, BackgroundColor: "#ffffff"},
		Elements: template.ElementList{
			&template.ShapeElement{
				ElementBase: template.ElementBase{ID: "band", X: 0, Y: 0, Width: 100, Height: 50},
				ShapeType:   template.ShapeRect,
				Fill:        fill,
			},
		},
	}
}

func testRows(n int) []template.RowData {
	rows := make([]template.RowData, n)
	for i := range rows {
		rows[i] = template.RowData{"title": fmt.Sprintf("row %d", i)}
	}
	return rows
}

func TestJobRunSequential(t *testing.T) {
	templates := []*template.Template{
		testTemplate("tmpl-red", "#ff0000"),
		testTemplate("tmpl-blue", "#0000ff"),
	}
	job := NewJob(templates, distribute.ModeSequential, testRows(4), nil)

	sum, err := job.Run(context.Background(), testSession())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 4 || sum.Succeeded != 4 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	for i, r := range sum.Results {
		want := templates[i%2].ID
		if r.TemplateID != want {
			t.Errorf("row %d template = %s, want %s", i, r.TemplateID, want)
		}
		if wantName := fmt.Sprintf("pin-%04d.png", i+1); r.Filename != wantName {
			t.Errorf("row %d filename = %s, want %s", i, r.Filename, wantName)
		}
		img, err := png.Decode(bytes.NewReader(r.Data))
		if err != nil {
			t.Fatalf("row %d output is not a PNG: %v", i, err)
		}
		if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 150 {
			t.Errorf("row %d bounds = %v", i, b)
		}
	}
}

func TestJobRunNoTemplates(t *testing.T) {
	job := NewJob(nil, distribute.ModeSequential, testRows(1), nil)
	if _, err := job.Run(context.Background(), testSession()); !errors.Is(err, distribute.ErrNoTemplates) {
		t.Errorf("err = %v, want ErrNoTemplates", err)
	}
}

func TestJobRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob([]*template.Template{testTemplate("t", "#000000")},
		distribute.ModeSequential, testRows(2), nil)
	if _, err := job.Run(ctx, testSession()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// An unreachable image degrades to a placeholder inside the render pass, so
// every row still produces an output file.
func TestJobRunUnreachableImageStillProducesOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	tmpl := testTemplate("t", "#ff0000")
	tmpl.Elements = append(tmpl.Elements, &template.ImageElement{
		ElementBase: template.ElementBase{ID: "hero", X: 0, Y: 50, Width: 100, Height: 100},
		ImageURL:    srv.URL + "/dead.jpg",
	})

	job := NewJob([]*template.Template{tmpl}, distribute.ModeSequential, testRows(3), nil)
	sum, err := job.Run(context.Background(), testSession())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 3 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want all rows succeeded via placeholder", sum)
	}
	for _, r := range sum.Results {
		if len(r.Data) == 0 {
			t.Errorf("row %d produced no output", r.RowIndex)
		}
	}
}

// Encoding failures stay row-local: the run finishes and reports them.
func TestJobRunRowFailureIsolation(t *testing.T) {
	job := NewJob([]*template.Template{testTemplate("t", "#000000")},
		distribute.ModeSequential, testRows(3), nil)
	job.Export = export.Options{Format: "bogus"}

	sum, err := job.Run(context.Background(), testSession())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 3 || sum.Succeeded != 0 {
		t.Fatalf("summary = %+v, want all rows failed", sum)
	}
	for _, r := range sum.Results {
		if r.Err == nil {
			t.Errorf("row %d: expected an error", r.RowIndex)
		}
	}
}

func TestWriteZip(t *testing.T) {
	sum := &Summary{
		JobID:     "job1",
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Results: []RowResult{
			{RowIndex: 0, TemplateID: "t1", Filename: "pin-0001.png", Data: []byte("png-bytes")},
			{RowIndex: 1, TemplateID: "t1", Err: errors.New("render row 1: boom")},
		},
	}

	var buf bytes.Buffer
	if err := sum.WriteZip(&buf); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = string(data)
	}

	if files["pin-0001.png"] != "png-bytes" {
		t.Errorf("entry pin-0001.png = %q", files["pin-0001.png"])
	}
	manifest, ok := files["manifest.txt"]
	if !ok {
		t.Fatal("manifest.txt missing")
	}
	// The manifest explains every row, including the failed one.
	if !strings.Contains(manifest, "row 1: pin-0001.png") {
		t.Errorf("manifest missing success line:\n%s", manifest)
	}
	if !strings.Contains(manifest, "row 2: FAILED: render row 1: boom") {
		t.Errorf("manifest missing failure line:\n%s", manifest)
	}
	if !strings.Contains(manifest, "2 rows, 1 succeeded, 1 failed") {
		t.Errorf("manifest missing summary line:\n%s", manifest)
	}
}

func TestParseCSV(t *testing.T) {
	in := "\ufefftitle, image_url\nFirst Pin,https://example.com/a.jpg\nShort Row\n"
	data, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Columns) != 2 || data.Columns[0] != "title" || data.Columns[1] != "image_url" {
		t.Fatalf("columns = %v", data.Columns)
	}
	if len(data.Rows) != 2 {
		t.Fatalf("got %d rows", len(data.Rows))
	}
	if data.Rows[0]["title"] != "First Pin" || data.Rows[0]["image_url"] != "https://example.com/a.jpg" {
		t.Errorf("row 0 = %v", data.Rows[0])
	}
	// Short records pad missing columns with empty strings.
	if v, ok := data.Rows[1]["image_url"]; !ok || v != "" {
		t.Errorf("row 1 image_url = %q, %v; want padded empty", v, ok)
	}
}

func TestIdentityMapping(t *testing.T) {
	data, err := ParseCSV(strings.NewReader("title,image_url\nA,B\n"))
	if err != nil {
		t.Fatal(err)
	}
	m := data.IdentityMapping()
	if len(m) != 2 || m["title"] != "title" || m["image_url"] != "image_url" {
		t.Errorf("mapping = %v", m)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Error("empty CSV must error")
	}
}

func TestParseCSVRaggedWide(t *testing.T) {
	// Extra cells past the header are dropped.
	data, err := ParseCSV(strings.NewReader("a,b\n1,2,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Rows) != 1 || data.Rows[0]["a"] != "1" || data.Rows[0]["b"] != "2" {
		t.Errorf("rows = %v", data.Rows)
	}
	if len(data.Rows[0]) != 2 {
		t.Errorf("row 0 has %d keys, want 2", len(data.Rows[0]))
	}
}
