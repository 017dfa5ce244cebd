//go:build js && wasm

// pinrender WASM — browser-side renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o pinrender.wasm ./clients/wasm/
//
// The browser and the server run this same engine package, so a preview
// rendered here is byte-identical to the server's batch output.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/pinforge/pinrender/pkg/engine"
	"github.com/pinforge/pinrender/pkg/export"
	"github.com/pinforge/pinrender/pkg/fonts"
	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/subst"
	"github.com/pinforge/pinrender/pkg/template"
	"github.com/pinforge/pinrender/pkg/textfit"
)

// session is the browser tab's rendering session. Surfaces are keyed by an
// editor-assigned id so interactive previews render incrementally.
var (
	session  *engine.Session
	surfaces = make(map[string]*engine.Surface)
)

func main() {
	fmt.Println("pinrender WASM loaded")

	// The page origin serves /api/proxy; cross-origin hosts that block
	// canvas reads go through it.
	fetcher := &imagecache.ProxyFetcher{
		ProxyBase: "/api/proxy",
		Direct:    imagecache.NewDirectFetcher(),
		BlockedHosts: []string{
			"instagram.com", "cdninstagram.com", "fbcdn.net",
		},
	}
	session = engine.NewSession(imagecache.New(fetcher, nil), fonts.NewRegistry(), nil)

	js.Global().Set("pinRenderTemplate", js.FuncOf(renderTemplate))
	js.Global().Set("pinRenderToSurface", js.FuncOf(renderToSurface))
	js.Global().Set("pinDisposeSurface", js.FuncOf(disposeSurface))
	js.Global().Set("pinRegisterFont", js.FuncOf(registerFont))
	js.Global().Set("pinRegisterAsset", js.FuncOf(registerAsset))
	js.Global().Set("pinAutoFitSize", js.FuncOf(autoFitSize))
	js.Global().Set("pinSubstitute", js.FuncOf(substitute))
	js.Global().Set("pinReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// pinRenderTemplate(templateJSON, rowJSON, mappingJSON) — one-shot render on
// a fresh surface, returned as base64 PNG.
func renderTemplate(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need templateJSON, rowJSON, mappingJSON")
	}

	tmpl, row, mapping, errStr := decodeRenderArgs(args[0].String(), args[1].String(), args[2].String())
	if errStr != "" {
		return js.ValueOf(errStr)
	}

	img, err := session.RenderToImage(context.Background(), tmpl, row, mapping)
	if err != nil {
		return js.ValueOf("error: render: " + err.Error())
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, img, export.Options{Format: export.FormatPNG}); err != nil {
		return js.ValueOf("error: encode: " + err.Error())
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

// pinRenderToSurface(surfaceId, templateJSON, rowJSON, mappingJSON) —
// incremental render: only elements whose identity changed are rebuilt.
// Returns base64 PNG of the repainted surface.
func renderToSurface(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return js.ValueOf("error: need surfaceId, templateJSON, rowJSON, mappingJSON")
	}
	surfaceID := args[0].String()

	tmpl, row, mapping, errStr := decodeRenderArgs(args[1].String(), args[2].String(), args[3].String())
	if errStr != "" {
		return js.ValueOf(errStr)
	}

	surf, ok := surfaces[surfaceID]
	if !ok || surf.Disposed() {
		surf = engine.NewSurface(tmpl.Canvas)
		surfaces[surfaceID] = surf
	}

	if err := session.RenderTemplate(context.Background(), surf, tmpl.Elements, tmpl.Canvas, row, mapping); err != nil {
		return js.ValueOf("error: render: " + err.Error())
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, surf.Image(), export.Options{Format: export.FormatPNG}); err != nil {
		return js.ValueOf("error: encode: " + err.Error())
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

// pinDisposeSurface(surfaceId) — drop a surface and its nodes.
func disposeSurface(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need surfaceId")
	}
	id := args[0].String()
	if surf, ok := surfaces[id]; ok {
		surf.Dispose()
		delete(surfaces, id)
	}
	return js.ValueOf("ok")
}

// pinRegisterFont(family, base64Data) — register an uploaded TTF.
func registerFont(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: need family, base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}
	if err := session.Fonts.RegisterTTF(args[0].String(), data); err != nil {
		return js.ValueOf("error: register font: " + err.Error())
	}
	return js.ValueOf("ok")
}

// pinRegisterAsset(url, base64Data) — warm the image cache for a URL the
// editor already holds in memory (uploads, pasted images).
func registerAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: need url, base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}
	session.Cache.Warm(args[0].String(), data)
	return js.ValueOf("ok")
}

// pinAutoFitSize(optionsJSON) — the auto-fit computation alone, for editor
// live feedback without a full render.
func autoFitSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need optionsJSON")
	}
	var opts textfit.Options
	if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
		return js.ValueOf("error: parse options: " + err.Error())
	}
	return js.ValueOf(textfit.CalculateAutoFitSize(session.Fonts, opts, session.Memo))
}

// pinSubstitute(text, rowJSON, mappingJSON) — placeholder substitution alone.
func substitute(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need text, rowJSON, mappingJSON")
	}
	var row template.RowData
	var mapping template.FieldMapping
	if err := json.Unmarshal([]byte(args[1].String()), &row); err != nil {
		return js.ValueOf("error: parse row: " + err.Error())
	}
	if s := args[2].String(); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &mapping); err != nil {
			return js.ValueOf("error: parse mapping: " + err.Error())
		}
	}
	return js.ValueOf(subst.Substitute(args[0].String(), row, mapping))
}

// decodeRenderArgs parses the three render payloads shared by the render
// entry points. A non-empty fourth return is a JS-facing error string.
func decodeRenderArgs(templateStr, rowStr, mappingStr string) (*template.Template, template.RowData, template.FieldMapping, string) {
	tmpl, err := template.Parse([]byte(templateStr))
	if err != nil {
		return nil, nil, nil, "error: parse template: " + err.Error()
	}
	warnings, err := template.Validate(tmpl)
	for _, w := range warnings {
		fmt.Println("template warning:", w)
	}
	if err != nil {
		return nil, nil, nil, "error: validate template: " + err.Error()
	}

	var row template.RowData
	if rowStr != "" && rowStr != "null" {
		if err := json.Unmarshal([]byte(rowStr), &row); err != nil {
			return nil, nil, nil, "error: parse row: " + err.Error()
		}
	}

	var mapping template.FieldMapping
	if mappingStr != "" && mappingStr != "null" {
		if err := json.Unmarshal([]byte(mappingStr), &mapping); err != nil {
			return nil, nil, nil, "error: parse mapping: " + err.Error()
		}
	}
	return tmpl, row, mapping, ""
}
