// Package engine is the shared rendering core: it diffs an element list
// against a surface's committed scene by stable element identity, pre-loads
// new images in parallel with settle-all failure isolation, builds scene
// nodes in z-order, and commits the delta. The same package runs natively on
// the server and compiled to WASM in the browser, which is what makes
// preview and batch output byte-identical.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"

	"github.com/pinforge/pinrender/pkg/fonts"
	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/template"
	"github.com/pinforge/pinrender/pkg/textfit"
)

// ErrSurfaceDisposed is returned when a render pass hits a disposed surface.
// With ErrNoSurface these are the only fatal render conditions; everything
// element-level degrades to placeholders or skips.
var (
	ErrSurfaceDisposed = errors.New("engine: surface is disposed")
	ErrNoSurface       = errors.New("engine: nil surface")
)

// Session owns the per-session mutable state the renderer needs: the image
// cache, the font registry and the auto-fit memo. Construct one per rendering
// session (one preview tab, one batch run) and share it across that session's
// render passes; state never bleeds between sessions.
type Session struct {
	Fonts  *fonts.Registry
	Cache  *imagecache.Cache
	Memo   *textfit.Memo
	Logger *slog.Logger
}

// NewSession builds a session. Any nil argument gets a working default; a
// nil cache disables network image resolution but keeps everything else.
func NewSession(cache *imagecache.Cache, registry *fonts.Registry, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = imagecache.New(nil, logger)
	}
	if registry == nil {
		registry = fonts.NewRegistry()
	}
	return &Session{
		Fonts:  registry,
		Cache:  cache,
		Memo:   textfit.NewMemo(),
		Logger: logger,
	}
}

// RenderTemplate is the primary entry point: one incremental render pass.
// The caller serializes passes per surface; concurrent calls on one surface
// are a contract violation.
func (s *Session) RenderTemplate(ctx context.Context, surf *Surface, elements []template.Element, cfg template.RenderConfig, rowData template.RowData, fieldMapping template.FieldMapping) error {
	if surf == nil {
		return ErrNoSurface
	}
	if surf.Disposed() {
		return ErrSurfaceDisposed
	}

	// Invisible elements produce no scene node at all; treating them as
	// not-incoming also removes the node of an element that just turned
	// invisible.
	visible := make([]template.Element, 0, len(elements))
	incoming := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		if el.Base().IsVisible() {
			visible = append(visible, el)
			incoming[el.Base().ID] = struct{}{}
		}
	}

	// Remove stale nodes first so their pixels never flash over new content.
	removed := 0
	for _, n := range append([]Node(nil), surf.nodes...) {
		if _, ok := incoming[n.ElementID()]; !ok {
			surf.removeByID(n.ElementID())
			removed++
		}
	}

	var newElements []template.Element
	for _, el := range visible {
		if !surf.has(el.Base().ID) {
			newElements = append(newElements, el)
		}
	}

	preloaded := s.preloadImages(ctx, newElements, rowData, fieldMapping)

	// Ascending z-index decides paint order for additions; pre-existing
	// nodes keep their prior position. SliceStable preserves array order
	// between equal z-indexes.
	sort.SliceStable(newElements, func(i, j int) bool {
		return newElements[i].Base().ZIndex < newElements[j].Base().ZIndex
	})

	added := 0
	for _, el := range newElements {
		node, err := s.buildNode(ctx, el, rowData, fieldMapping, preloaded)
		if err != nil {
			// Recoverable per element: log and continue the pass.
			s.Logger.Error("scene node construction failed",
				"elementId", el.Base().ID, "kind", string(el.Kind()), "error", err)
			continue
		}
		if node == nil {
			continue
		}
		surf.add(node)
		added++
	}

	surf.lastAdded = added
	surf.lastRemoved = removed
	surf.setConfig(cfg)
	surf.Repaint()
	return nil
}

// preloadImages resolves every new visible image element in parallel. Settle
// all: each resolution runs to success or failure independently, and a
// failure simply leaves no entry for that element (the builder falls back to
// a synchronous attempt, then a placeholder).
func (s *Session) preloadImages(ctx context.Context, newElements []template.Element, rowData template.RowData, fieldMapping template.FieldMapping) map[string]*image.NRGBA {
	type task struct {
		id  string
		el  *template.ImageElement
		url string
	}
	var tasks []task
	for _, el := range newElements {
		img, ok := el.(*template.ImageElement)
		if !ok {
			continue
		}
		tasks = append(tasks, task{
			id:  img.ID,
			el:  img,
			url: imagecache.ResolveDynamicImageURL(img, rowData, fieldMapping),
		})
	}
	if len(tasks) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*image.NRGBA, len(tasks))
		wg      sync.WaitGroup
	)
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.Logger.Error("image pre-load panicked",
						"elementId", t.id, "panic", fmt.Sprint(r))
				}
			}()
			img := s.Cache.Resolve(ctx, t.url, boxPx(t.el.Width), boxPx(t.el.Height))
			mu.Lock()
			results[t.id] = img
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	return results
}

// RenderToImage renders one template against one row on a fresh headless
// surface and returns the pixels. This is the batch/export path.
func (s *Session) RenderToImage(ctx context.Context, t *template.Template, rowData template.RowData, fieldMapping template.FieldMapping) (*image.NRGBA, error) {
	surf := NewSurface(t.Canvas)
	if err := s.RenderTemplate(ctx, surf, t.Elements, t.Canvas, rowData, fieldMapping); err != nil {
		return nil, err
	}
	return surf.Image(), nil
}
