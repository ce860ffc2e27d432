package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/searcher"
	"github.com/dshills/contextrank/internal/source"
	"github.com/dshills/contextrank/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Path is not a readable project directory
	ErrorCodeAnalysisInProgress = -32002 // Another analysis is already running
	ErrorCodeNoSourceFiles      = -32003 // No file passed the source filters
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

const maxLimit = 20

// handleAnalyzeProject handles the analyze_project tool invocation
func (s *Server) handleAnalyzeProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, files, err := s.project(request)
	if err != nil {
		return nil, err
	}

	eng := s.sessions.Get(root)
	analysis, err := eng.AnalyzeProject(ctx, filepath.Base(root), files, progressNotifier(ctx, request))
	if err != nil {
		return nil, engineError("analysis failed", err)
	}

	response := map[string]interface{}{
		"analyzed":        true,
		"project":         analysis.Name,
		"project_hash":    analysis.ProjectHash,
		"files":           analysis.FileCount,
		"extracted":       analysis.Extracted,
		"reused":          analysis.Reused,
		"failed":          analysis.Failed,
		"symbols":         analysis.SymbolCount,
		"edges":           analysis.EdgeCount,
		"keywords":        analysis.Keywords,
		"snapshot_reused": analysis.SnapshotReused,
		"duration_ms":     analysis.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGenerateEmbeddings handles the generate_embeddings tool invocation
func (s *Server) handleGenerateEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, files, err := s.project(request)
	if err != nil {
		return nil, err
	}

	stats, err := s.sessions.Get(root).GenerateEmbeddings(ctx, files, progressNotifier(ctx, request))
	if err != nil {
		return nil, engineError("embedding generation failed", err)
	}

	response := map[string]interface{}{
		"total":       stats.Total,
		"generated":   stats.Generated,
		"cached":      stats.Cached,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if stats.Provider == "" {
		response["message"] = "No embedding provider configured; searches use the structure signal only."
	} else {
		response["provider"] = stats.Provider
		response["model"] = stats.Model
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, limit, err := searchParams(request)
	if err != nil {
		return nil, err
	}
	root, files, err := s.project(request)
	if err != nil {
		return nil, err
	}

	results, err := s.sessions.Get(root).HybridSearch(ctx, query, files)
	if err != nil {
		return nil, engineError("search failed", err)
	}
	return mcp.NewToolResultText(formatResults(types.ModeHybrid, query, results, limit)), nil
}

// handleTriModelSearch handles the tri_model_search tool invocation
func (s *Server) handleTriModelSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, limit, err := searchParams(request)
	if err != nil {
		return nil, err
	}
	root, files, err := s.project(request)
	if err != nil {
		return nil, err
	}
	entry := getStringDefault(argsOf(request), "entry_point", "")

	results, err := s.sessions.Get(root).TriModelSearch(ctx, query, files, filepath.ToSlash(entry))
	if errors.Is(err, searcher.ErrEntryPointNotFound) {
		return nil, newMCPError(ErrorCodeInvalidParams, "entry point not found in project", map[string]interface{}{
			"param": "entry_point",
			"value": entry,
		})
	}
	if err != nil {
		return nil, engineError("search failed", err)
	}
	return mcp.NewToolResultText(formatResults(types.ModeTriModel, query, results, limit)), nil
}

// handleExtractKeywords handles the extract_keywords tool invocation.
// The project is analyzed first; unchanged projects come from the cache.
func (s *Server) handleExtractKeywords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, files, err := s.project(request)
	if err != nil {
		return nil, err
	}

	analysis, err := s.sessions.Get(root).AnalyzeProject(ctx, filepath.Base(root), files, nil)
	if err != nil {
		return nil, engineError("keyword extraction failed", err)
	}

	response := map[string]interface{}{
		"project":  analysis.Name,
		"keywords": analysis.Keywords,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := requirePath(request)
	if err != nil {
		return nil, err
	}

	status, err := s.sessions.Get(root).Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"analyzed": status.Files > 0,
		"path":     root,
		"status":   status,
	}
	if status.Files == 0 {
		response["message"] = "Project not analyzed. Use analyze_project to analyze it."
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := requirePath(request)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Get(root).ClearCache(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.sessions.Remove(root)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"cleared": true})), nil
}

// handleEvictCache handles the evict_cache tool invocation
func (s *Server) handleEvictCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := getFloatDefault(argsOf(request), "max_age_hours", 720)
	if hours < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_age_hours must be >= 0", map[string]interface{}{
			"param": "max_age_hours",
			"value": hours,
		})
	}
	maxAge := time.Duration(hours * float64(time.Hour))

	removed, err := s.cache.EvictOlderThan(ctx, maxAge)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "eviction failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"removed":       removed,
		"max_age_hours": hours,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// project validates the path argument and loads the project's files
func (s *Server) project(request mcp.CallToolRequest) (string, []types.SourceFile, error) {
	root, err := requirePath(request)
	if err != nil {
		return "", nil, err
	}

	files, err := source.Load(root, s.source)
	if err != nil {
		return "", nil, newMCPError(ErrorCodeProjectNotFound, "failed to load project files", map[string]interface{}{
			"path":  root,
			"error": err.Error(),
		})
	}
	if len(files) == 0 {
		return "", nil, newMCPError(ErrorCodeNoSourceFiles, "no source files found", map[string]interface{}{
			"path":       root,
			"extensions": s.source.Extensions,
		})
	}
	s.logger.WithField("path", root).WithField("files", len(files)).Debug("project loaded")
	return root, files, nil
}

func requirePath(request mcp.CallToolRequest) (string, error) {
	args := argsOf(request)
	if args == nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return filepath.Clean(path), nil
}

func searchParams(request mcp.CallToolRequest) (string, int, error) {
	args := argsOf(request)
	if args == nil {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", 0, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", maxLimit)
	if limit < 1 || limit > maxLimit {
		return "", 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return query, limit, nil
}

// progressNotifier forwards analysis progress as MCP progress
// notifications when the client supplied a progress token
func progressNotifier(ctx context.Context, request mcp.CallToolRequest) engine.ProgressReporter {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}

	token := request.Params.Meta.ProgressToken
	return engine.ProgressFunc(func(p types.Progress) {
		_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]interface{}{
			"progressToken": token,
			"progress":      p.Done,
			"total":         p.Total,
			"message":       p.Stage + " " + p.File,
		})
	})
}

func engineError(message string, err error) error {
	if errors.Is(err, engine.ErrAnalysisInProgress) {
		return newMCPError(ErrorCodeAnalysisInProgress, "another analysis is already running", nil)
	}
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatResults renders a ranked list, truncated to limit
func formatResults(mode types.SearchMode, query string, results []types.RankedResult, limit int) string {
	if len(results) > limit {
		results = results[:limit]
	}
	response := map[string]interface{}{
		"mode":    mode,
		"query":   query,
		"count":   len(results),
		"results": results,
	}
	if len(results) == 0 {
		response["message"] = "No files matched the query."
	}
	return formatJSON(response)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func argsOf(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a numeric parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation errors

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
