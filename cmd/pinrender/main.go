// pinrender — CSV-driven pin image generation.
//
// Usage:
//
//	pinrender generate --template <path>... --csv <path> [options]
//	pinrender preview --template <path> [--csv <path> --row N] [options]
//	pinrender fields --template <path>
//	pinrender serve [--port 8080]
//	pinrender init
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pinforge/pinrender/clients/server"
	"github.com/pinforge/pinrender/pkg/batch"
	"github.com/pinforge/pinrender/pkg/distribute"
	"github.com/pinforge/pinrender/pkg/engine"
	"github.com/pinforge/pinrender/pkg/export"
	"github.com/pinforge/pinrender/pkg/fonts"
	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "preview":
		if err := runPreview(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "fields":
		if err := runFields(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		fatal(fmt.Errorf("unknown command %q", os.Args[1]))
	}
}

// templateList collects repeated --template flags.
type templateList []string

func (t *templateList) String() string     { return strings.Join(*t, ",") }
func (t *templateList) Set(v string) error { *t = append(*t, v); return nil }

func newSession() *engine.Session {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cache := imagecache.New(imagecache.NewDirectFetcher(), logger)
	return engine.NewSession(cache, fonts.NewRegistry(), logger)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)

	var (
		templates templateList
		csvPath   string
		outDir    string
		mode      string
		format    string
		quality   int
		scale     float64
		fontPaths templateList
	)
	fs.Var(&templates, "template", "Template JSON path (repeatable)")
	fs.StringVar(&csvPath, "csv", "", "CSV data file")
	fs.StringVar(&outDir, "out", "output", "Output directory")
	fs.StringVar(&mode, "mode", "sequential", "Distribution mode: sequential|random|equal|csv_column")
	fs.StringVar(&format, "format", "png", "Output format: png|jpeg|webp")
	fs.IntVar(&quality, "quality", 90, "JPEG/WebP quality (1-100)")
	fs.Float64Var(&scale, "scale", 1, "Resolution multiplier")
	fs.Var(&fontPaths, "font", "TTF font file, registered as family=path (repeatable)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(templates) == 0 {
		return fmt.Errorf("at least one --template is required")
	}
	if csvPath == "" {
		return fmt.Errorf("--csv is required")
	}

	session := newSession()
	if err := registerFonts(session, fontPaths); err != nil {
		return err
	}

	tmpls, err := loadTemplates(templates)
	if err != nil {
		return err
	}

	data, err := batch.LoadCSV(csvPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d rows (%s), %d template(s)\n", len(data.Rows), strings.Join(data.Columns, ", "), len(tmpls))

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	job := batch.NewJob(tmpls, distribute.Mode(mode), data.Rows, data.IdentityMapping())
	job.Export = export.Options{Format: f, Quality: quality, Scale: scale}

	summary, err := job.Run(context.Background(), session)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Warning: row %d failed: %v\n", r.RowIndex+1, r.Err)
			continue
		}
		path := outDir + string(os.PathSeparator) + r.Filename
		if err := os.WriteFile(path, r.Data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	fmt.Printf("Done: %d/%d pins → %s\n", summary.Succeeded, summary.Total, outDir)
	return nil
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)

	var (
		templatePath string
		csvPath      string
		rowIndex     int
		output       string
		fontPaths    templateList
	)
	fs.StringVar(&templatePath, "template", "", "Template JSON path")
	fs.StringVar(&csvPath, "csv", "", "CSV data file (optional)")
	fs.IntVar(&rowIndex, "row", 0, "CSV row to preview (0-based)")
	fs.StringVar(&output, "o", "preview.png", "Output file")
	fs.Var(&fontPaths, "font", "TTF font file, registered as family=path (repeatable)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	if templatePath == "" {
		return fmt.Errorf("--template is required")
	}

	session := newSession()
	if err := registerFonts(session, fontPaths); err != nil {
		return err
	}

	tmpls, err := loadTemplates([]string{templatePath})
	if err != nil {
		return err
	}

	var (
		row     template.RowData
		mapping template.FieldMapping
	)
	if csvPath != "" {
		data, err := batch.LoadCSV(csvPath)
		if err != nil {
			return err
		}
		if rowIndex < 0 || rowIndex >= len(data.Rows) {
			return fmt.Errorf("row %d out of range (%d rows)", rowIndex, len(data.Rows))
		}
		row = data.Rows[rowIndex]
		mapping = data.IdentityMapping()
	}

	img, err := session.RenderToImage(context.Background(), tmpls[0], row, mapping)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := export.Write(output, img, export.Options{}); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)
	return nil
}

func runFields(args []string) error {
	fs := flag.NewFlagSet("fields", flag.ExitOnError)
	var templatePath string
	fs.StringVar(&templatePath, "template", "", "Template JSON path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if templatePath == "" {
		return fmt.Errorf("--template is required")
	}

	tmpl, err := template.Load(templatePath)
	if err != nil {
		return err
	}
	fields := template.DynamicFields(tmpl)
	if len(fields) == 0 {
		fmt.Println("Template has no dynamic fields.")
		return nil
	}
	fmt.Println("Dynamic fields (CSV columns expected):")
	for _, f := range fields {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		port    string
		origins string
	)
	fs.StringVar(&port, "port", "", "Listen port (default 8080, env PINRENDER_PORT)")
	fs.StringVar(&origins, "origins", "", "Comma-separated allowed CORS origins (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := server.Options{Port: port}
	if origins != "" {
		opts.AllowOrigins = strings.Split(origins, ",")
	}
	return server.RunServe(opts)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var templateOut, csvOut string
	fs.StringVar(&templateOut, "template", "template.json", "Output path for sample template")
	fs.StringVar(&csvOut, "csv", "data.csv", "Output path for sample CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(templateOut, []byte(exampleTemplateJSON), 0644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	if err := os.WriteFile(csvOut, []byte(exampleCSV), 0644); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}

	fmt.Printf("Created: %s, %s\n", templateOut, csvOut)
	fmt.Println("Run: pinrender generate --template template.json --csv data.csv")
	return nil
}

func loadTemplates(paths []string) ([]*template.Template, error) {
	var tmpls []*template.Template
	for _, p := range paths {
		t, err := template.Load(p)
		if err != nil {
			return nil, err
		}
		warnings, err := template.Validate(t)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", p, w)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		tmpls = append(tmpls, t)
	}
	return tmpls, nil
}

// registerFonts handles repeated --font family=path flags.
func registerFonts(session *engine.Session, specs []string) error {
	for _, spec := range specs {
		family, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("--font needs family=path, got %q", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read font %s: %w", path, err)
		}
		if err := session.Fonts.RegisterTTF(family, data); err != nil {
			return fmt.Errorf("register font %s: %w", family, err)
		}
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`pinrender — CSV-driven pin image generation

USAGE:
    pinrender generate --template <path> [--template <path>...] --csv <path> [options]
    pinrender preview --template <path> [--csv <path> --row N] [-o preview.png]
    pinrender fields --template <path>
    pinrender serve [--port 8080] [--origins a.com,b.com]
    pinrender init

GENERATE:
    --template <path>      Template JSON (repeat for multi-template campaigns)
    --csv <path>           CSV data file; first row is the header
    --out <dir>            Output directory (default: output)
    --mode <mode>          sequential|random|equal|csv_column (default: sequential)
    --format <fmt>         png|jpeg|webp (default: png)
    --quality <1-100>      JPEG/WebP quality (default: 90)
    --scale <mult>         Resolution multiplier, e.g. 2 for @2x
    --font family=path     Register a TTF font (repeatable)

PREVIEW:
    --template <path>      Template JSON
    --csv <path> --row N   Render row N instead of raw placeholders
    -o <path>              Output file (default: preview.png)

FIELDS:
    pinrender fields --template <path>   List the CSV columns a template expects

SERVER:
    pinrender serve [--port 8080]        Start the HTTP API

EXAMPLES:
    pinrender init
    pinrender generate --template template.json --csv data.csv
    pinrender generate --template a.json --template b.json --csv data.csv --mode equal
    pinrender preview --template template.json --csv data.csv --row 2
    pinrender fields --template template.json
`)
}
