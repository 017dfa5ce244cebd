// Package server provides the pinrender HTTP API: single-row render, CSV
// batch generation, the image proxy, and font/image asset management. The
// same engine package renders here and in the WASM client, so a preview
// fetched from this API is byte-identical to a browser-side render.
package server

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pinforge/pinrender/pkg/batch"
	"github.com/pinforge/pinrender/pkg/distribute"
	"github.com/pinforge/pinrender/pkg/engine"
	"github.com/pinforge/pinrender/pkg/export"
	"github.com/pinforge/pinrender/pkg/fonts"
	"github.com/pinforge/pinrender/pkg/imagecache"
	"github.com/pinforge/pinrender/pkg/template"
)

// ── Asset Manager ──

type asset struct {
	Name string
	Data []byte
	Mime string
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) add(name string, data []byte, mimeType string) string {
	id := randomID()
	am.mu.Lock()
	am.assets[id] = &asset{Name: name, Data: data, Mime: mimeType}
	am.mu.Unlock()
	return id
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

func (am *assetManager) listAll() []gin.H {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]gin.H, 0, len(am.assets))
	for id, a := range am.assets {
		result = append(result, gin.H{
			"id":   id,
			"name": a.Name,
			"mime": a.Mime,
			"size": len(a.Data),
		})
	}
	return result
}

func (am *assetManager) remove(id string) {
	am.mu.Lock()
	delete(am.assets, id)
	am.mu.Unlock()
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ── Server ──

// Options configure the HTTP server.
type Options struct {
	Port         string
	AllowOrigins []string
	ProxyBase    string // external proxy for blocked hosts; empty uses our own /api/proxy
	Logger       *slog.Logger
}

type srv struct {
	assets  *assetManager
	session *engine.Session
	logger  *slog.Logger
}

// RunServe starts the API server and blocks.
func RunServe(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Port == "" {
		opts.Port = envOr("PINRENDER_PORT", "8080")
	}

	// The server is the direct execution context; an external proxy base is
	// only wired in when configured.
	var fetcher imagecache.Fetcher = imagecache.NewDirectFetcher()
	if opts.ProxyBase != "" {
		fetcher = &imagecache.ProxyFetcher{
			ProxyBase: opts.ProxyBase,
			Direct:    fetcher,
		}
	}
	cache := imagecache.New(fetcher, logger)

	s := &srv{
		assets:  newAssetManager(),
		session: engine.NewSession(cache, fonts.NewRegistry(), logger),
		logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	{
		api.POST("/render", s.handleRender)
		api.POST("/batch", s.handleBatch)
		api.GET("/proxy", s.handleProxy)
		api.POST("/upload/font", s.handleUploadFont)
		api.POST("/upload/image", s.handleUploadImage)
		api.GET("/assets", s.handleListAssets)
		api.GET("/assets/:id", s.handleGetAsset)
		api.DELETE("/assets/:id", s.handleDeleteAsset)
		api.GET("/health", s.handleHealth)
	}

	addr := ":" + opts.Port
	logger.Info("pinrender API listening", "addr", addr)
	return r.Run(addr)
}

// ── Render ──

type renderRequest struct {
	Template     json.RawMessage       `json:"template"`
	Row          template.RowData      `json:"row"`
	FieldMapping template.FieldMapping `json:"fieldMapping"`
	Format       string                `json:"format"`
	Quality      int                   `json:"quality"`
	Scale        float64               `json:"scale"`
}

func (s *srv) handleRender(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decode request: " + err.Error()})
		return
	}

	tmpl, err := s.parseTemplate(req.Template)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := s.session.RenderToImage(c.Request.Context(), tmpl, req.Row, req.FieldMapping)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render: " + err.Error()})
		return
	}

	var buf bytes.Buffer
	opts := export.Options{Format: format, Quality: req.Quality, Scale: req.Scale}
	if err := export.Encode(&buf, img, opts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, contentTypeFor(format), buf.Bytes())
}

// ── Batch ──

type batchRequest struct {
	Templates    []json.RawMessage     `json:"templates"`
	CSV          string                `json:"csv"`
	Mode         string                `json:"mode"`
	FieldMapping template.FieldMapping `json:"fieldMapping"`
	Format       string                `json:"format"`
	Quality      int                   `json:"quality"`
	Scale        float64               `json:"scale"`
}

func (s *srv) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decode request: " + err.Error()})
		return
	}

	var templates []*template.Template
	for i, raw := range req.Templates {
		tmpl, err := s.parseTemplate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("template %d: %v", i, err)})
			return
		}
		templates = append(templates, tmpl)
	}
	if len(templates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no templates supplied"})
		return
	}

	data, err := batch.ParseCSV(strings.NewReader(req.CSV))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parse CSV: " + err.Error()})
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := distribute.Mode(req.Mode)
	if mode == "" {
		mode = distribute.ModeSequential
	}

	mapping := req.FieldMapping
	if mapping == nil {
		mapping = data.IdentityMapping()
	}

	job := batch.NewJob(templates, mode, data.Rows, mapping)
	job.Export = export.Options{Format: format, Quality: req.Quality, Scale: req.Scale}

	summary, err := job.Run(c.Request.Context(), s.session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch: " + err.Error()})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="pins-%s.zip"`, summary.JobID))
	c.Status(http.StatusOK)
	if err := summary.WriteZip(c.Writer); err != nil {
		s.logger.Error("zip stream failed", "jobId", summary.JobID, "error", err)
	}
}

// ── Upload ──

func (s *srv) handleUploadFont(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	data, err := readFormFile(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	family := c.PostForm("family")
	if family == "" {
		family = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	if err := s.session.Fonts.RegisterTTF(family, data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "register font: " + err.Error()})
		return
	}

	id := s.assets.add(file.Filename, data, "font/ttf")
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"name":   file.Filename,
		"family": family,
		"url":    "/api/assets/" + id,
	})
}

func (s *srv) handleUploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	data, err := readFormFile(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(file.Filename))
	if mimeType == "" {
		mimeType = "image/png"
	}
	id := s.assets.add(file.Filename, data, mimeType)
	c.JSON(http.StatusOK, gin.H{
		"id":   id,
		"name": file.Filename,
		"url":  "/api/assets/" + id,
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return buf.Bytes(), nil
}

// parseTemplate decodes, defaults and validates one template payload.
// Validation warnings are logged; only duplicate element IDs are fatal.
func (s *srv) parseTemplate(raw json.RawMessage) (*template.Template, error) {
	tmpl, err := template.Parse(raw)
	if err != nil {
		return nil, err
	}
	warnings, err := template.Validate(tmpl)
	for _, w := range warnings {
		s.logger.Warn("template validation", "templateId", tmpl.ID, "warning", w)
	}
	if err != nil {
		return nil, fmt.Errorf("validate template: %w", err)
	}
	return tmpl, nil
}

// ── Asset serving ──

func (s *srv) handleGetAsset(c *gin.Context) {
	a, ok := s.assets.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.Data(http.StatusOK, a.Mime, a.Data)
}

func (s *srv) handleListAssets(c *gin.Context) {
	c.JSON(http.StatusOK, s.assets.listAll())
}

func (s *srv) handleDeleteAsset(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.assets.get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	s.assets.remove(id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// ── Health ──

func (s *srv) handleHealth(c *gin.Context) {
	raw, decoded := s.session.Cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"time":         time.Now().UTC().Format(time.RFC3339),
		"cacheRaw":     raw,
		"cacheDecoded": decoded,
	})
}

// ── Helpers ──

func contentTypeFor(f export.Format) string {
	switch f {
	case export.FormatJPEG:
		return "image/jpeg"
	case export.FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
