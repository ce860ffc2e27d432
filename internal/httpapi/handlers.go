package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/searcher"
	"github.com/dshills/contextrank/internal/source"
	"github.com/dshills/contextrank/pkg/types"
)

const maxLimit = 20

type projectRequest struct {
	Path string `json:"path" binding:"required"`
}

type searchRequest struct {
	Path       string `json:"path" binding:"required"`
	Query      string `json:"query" binding:"required"`
	EntryPoint string `json:"entryPoint"`
	Limit      int    `json:"limit"`
}

type evictRequest struct {
	MaxAgeHours *float64 `json:"maxAgeHours"`
}

// searchResponse is the body of /api/search and /api/trimodel
type searchResponse struct {
	Mode    types.SearchMode     `json:"mode"`
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []types.RankedResult `json:"results"`
}

// errProject marks errors caused by the requested project path
var errProject = errors.New("invalid project")

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"sessions":       len(s.sessions.Roots()),
		"cacheAvailable": s.cache.Available(),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req projectRequest
	if !bind(c, &req) {
		return
	}
	root, files, err := s.load(req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	analysis, err := s.sessions.Get(root).AnalyzeProject(c.Request.Context(), filepath.Base(root), files, nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleEmbeddings(c *gin.Context) {
	var req projectRequest
	if !bind(c, &req) {
		return
	}
	root, files, err := s.load(req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	stats, err := s.sessions.Get(root).GenerateEmbeddings(c.Request.Context(), files, nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleSearch(c *gin.Context) {
	s.search(c, types.ModeHybrid)
}

func (s *Server) handleTriModel(c *gin.Context) {
	s.search(c, types.ModeTriModel)
}

func (s *Server) search(c *gin.Context, mode types.SearchMode) {
	var req searchRequest
	if !bind(c, &req) {
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = maxLimit
	}
	if limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxLimit)})
		return
	}
	root, files, err := s.load(req.Path)
	if err != nil {
		fail(c, err)
		return
	}

	eng := s.sessions.Get(root)
	var results []types.RankedResult
	if mode == types.ModeTriModel {
		results, err = eng.TriModelSearch(c.Request.Context(), req.Query, files, filepath.ToSlash(req.EntryPoint))
	} else {
		results, err = eng.HybridSearch(c.Request.Context(), req.Query, files)
	}
	if err != nil {
		fail(c, err)
		return
	}

	if len(results) > limit {
		results = results[:limit]
	}
	c.JSON(http.StatusOK, searchResponse{Mode: mode, Query: req.Query, Count: len(results), Results: results})
}

// handleKeywords analyzes the project (incrementally) and returns its keywords
func (s *Server) handleKeywords(c *gin.Context) {
	root, files, err := s.load(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}

	analysis, err := s.sessions.Get(root).AnalyzeProject(c.Request.Context(), filepath.Base(root), files, nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": analysis.Name, "keywords": analysis.Keywords})
}

// handleDependencies returns the outgoing edges of one analyzed file
func (s *Server) handleDependencies(c *gin.Context) {
	root, err := projectRoot(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}
	file := c.Query("file")
	if file == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file query parameter is required"})
		return
	}

	edges := s.sessions.Get(root).Dependencies(filepath.ToSlash(file))
	if edges == nil {
		edges = []types.DependencyEdge{}
	}
	c.JSON(http.StatusOK, gin.H{"file": file, "dependencies": edges})
}

func (s *Server) handleStatus(c *gin.Context) {
	root, err := projectRoot(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}

	status, err := s.sessions.Get(root).Status(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleClearCache(c *gin.Context) {
	root, err := projectRoot(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.sessions.Get(root).ClearCache(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	s.sessions.Remove(root)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleEvictCache(c *gin.Context) {
	var req evictRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	maxAge := cache.DefaultMaxAge
	if req.MaxAgeHours != nil {
		if *req.MaxAgeHours < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxAgeHours must be >= 0"})
			return
		}
		maxAge = time.Duration(*req.MaxAgeHours * float64(time.Hour))
	}

	removed, err := s.cache.EvictOlderThan(c.Request.Context(), maxAge)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "maxAge": maxAge.String()})
}

// load resolves the project root and reads its files
func (s *Server) load(path string) (string, []types.SourceFile, error) {
	root, err := projectRoot(path)
	if err != nil {
		return "", nil, err
	}
	files, err := source.Load(root, s.source)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errProject, err)
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("%w: no source files under %s", errProject, root)
	}
	return root, files, nil
}

func projectRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path is required", errProject)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path must be absolute", errProject)
	}
	return filepath.Clean(path), nil
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

// fail maps an error to a status code and writes the error body
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errProject), errors.Is(err, searcher.ErrEntryPointNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrAnalysisInProgress):
		status = http.StatusConflict
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
