// zip.go — ZIP packaging of a finished run. Failed rows are listed in a
// manifest instead of silently missing, so a 10-row run always explains all
// 10 rows.
package batch

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// WriteZip streams the run's outputs into w as a ZIP archive.
func (s *Summary) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	var manifest strings.Builder
	fmt.Fprintf(&manifest, "job %s: %d rows, %d succeeded, %d failed\n",
		s.JobID, s.Total, s.Succeeded, s.Failed)

	for _, r := range s.Results {
		if r.Err != nil {
			fmt.Fprintf(&manifest, "row %d: FAILED: %v\n", r.RowIndex+1, r.Err)
			continue
		}
		fmt.Fprintf(&manifest, "row %d: %s (template %s)\n", r.RowIndex+1, r.Filename, r.TemplateID)
		f, err := zw.Create(r.Filename)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", r.Filename, err)
		}
		if _, err := f.Write(r.Data); err != nil {
			return fmt.Errorf("zip write %s: %w", r.Filename, err)
		}
	}

	mf, err := zw.Create("manifest.txt")
	if err != nil {
		return fmt.Errorf("zip manifest: %w", err)
	}
	if _, err := io.WriteString(mf, manifest.String()); err != nil {
		return fmt.Errorf("zip manifest: %w", err)
	}
	return zw.Close()
}
