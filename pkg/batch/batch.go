// Package batch runs the CSV-driven generation loop: distribute each row to
// a template, render it on a fresh headless surface, encode it, and collect
// per-row results. Rows fail independently; one unreachable image or broken
// template never sinks the run.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/pinforge/pinrender/pkg/distribute"
	"github.com/pinforge/pinrender/pkg/engine"
	"github.com/pinforge/pinrender/pkg/export"
	"github.com/pinforge/pinrender/pkg/template"
)

// defaultParallel is the render chunk size: rows are processed in groups of
// this many concurrent render passes.
const defaultParallel = 5

// Job describes one batch run.
type Job struct {
	ID           string
	Templates    []*template.Template
	Mode         distribute.Mode
	Rows         []template.RowData
	FieldMapping template.FieldMapping
	Export       export.Options
	Parallel     int
}

// RowResult is the outcome for one CSV row.
type RowResult struct {
	RowIndex   int
	TemplateID string
	Filename   string
	Data       []byte
	Warning    string
	Err        error
}

// Summary aggregates a finished run.
type Summary struct {
	JobID     string
	Total     int
	Succeeded int
	Failed    int
	Results   []RowResult
}

// NewJob builds a job with a fresh ULID and defaults filled in.
func NewJob(templates []*template.Template, mode distribute.Mode, rows []template.RowData, mapping template.FieldMapping) *Job {
	return &Job{
		ID:           ulid.Make().String(),
		Templates:    templates,
		Mode:         mode,
		Rows:         rows,
		FieldMapping: mapping,
		Export:       export.Options{Format: export.FormatPNG},
		Parallel:     defaultParallel,
	}
}

// Run executes the job. It returns an error only for conditions that make
// the whole run impossible; row-level failures land in the summary.
func (j *Job) Run(ctx context.Context, session *engine.Session) (*Summary, error) {
	if len(j.Templates) == 0 {
		return nil, distribute.ErrNoTemplates
	}
	logger := session.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dctx := distribute.NewContext(j.Templates, j.Mode, len(j.Rows))
	parallel := j.Parallel
	if parallel < 1 {
		parallel = defaultParallel
	}

	results := make([]RowResult, len(j.Rows))

	// Chunked fan-out: at most `parallel` rows render at once. Distribution
	// is resolved up front on a single goroutine so the seeded generator
	// stays sequential and reproducible.
	type work struct {
		rowIndex int
		tmpl     *template.Template
		warning  string
	}
	queue := make([]work, 0, len(j.Rows))
	for i, row := range j.Rows {
		sel, err := distribute.SelectTemplate(dctx, distribute.Row{RowIndex: i, Data: row})
		if err != nil {
			return nil, err
		}
		if sel.Warning != "" {
			logger.Warn("distribution fallback", "jobId", j.ID, "row", i, "warning", sel.Warning)
		}
		queue = append(queue, work{rowIndex: i, tmpl: sel.Template, warning: sel.Warning})
	}

	for start := 0; start < len(queue); start += parallel {
		end := start + parallel
		if end > len(queue) {
			end = len(queue)
		}
		var wg sync.WaitGroup
		for _, w := range queue[start:end] {
			wg.Add(1)
			go func(w work) {
				defer wg.Done()
				results[w.rowIndex] = j.renderRow(ctx, session, w.rowIndex, w.tmpl, w.warning)
			}(w)
		}
		wg.Wait()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	sum := &Summary{JobID: j.ID, Total: len(j.Rows), Results: results}
	for _, r := range results {
		if r.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	logger.Info("batch finished",
		"jobId", j.ID, "total", sum.Total, "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum, nil
}

func (j *Job) renderRow(ctx context.Context, session *engine.Session, rowIndex int, tmpl *template.Template, warning string) RowResult {
	res := RowResult{
		RowIndex:   rowIndex,
		TemplateID: tmpl.ID,
		Filename:   j.filename(rowIndex),
		Warning:    warning,
	}

	img, err := session.RenderToImage(ctx, tmpl, j.Rows[rowIndex], j.FieldMapping)
	if err != nil {
		res.Err = fmt.Errorf("render row %d: %w", rowIndex, err)
		return res
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, img, j.Export); err != nil {
		res.Err = fmt.Errorf("encode row %d: %w", rowIndex, err)
		return res
	}
	res.Data = buf.Bytes()
	return res
}

// filename is the per-row output name: pin-0001.png, pin-0002.png, ...
func (j *Job) filename(rowIndex int) string {
	return fmt.Sprintf("pin-%04d%s", rowIndex+1, export.Ext(j.Export.Format))
}
