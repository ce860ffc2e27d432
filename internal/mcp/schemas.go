package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the project root",
	}
}

// analyzeProjectTool returns the tool definition for analyze_project
func analyzeProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_project",
		Description: "Extract symbols, build the dependency graph and mine domain keywords for a project. Unchanged files are reused from the cache.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// generateEmbeddingsTool returns the tool definition for generate_embeddings
func generateEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_embeddings",
		Description: "Embed every project file whose cached embedding is missing or stale, enabling the semantic signal in searches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// searchFilesTool returns the tool definition for search_files
func searchFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_files",
		Description: "Rank project files by relevance to a query, combining symbol matches with embedding similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text query, e.g. \"user authentication\"",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-20)",
					"default":     20,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// triModelSearchTool returns the tool definition for tri_model_search
func triModelSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "tri_model_search",
		Description: "Rank project files using structure, semantics, dependency relationships to an entry point and a generative role classifier",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text query",
				},
				"entry_point": map[string]interface{}{
					"type":        "string",
					"description": "Project-relative path of the file the workflow starts from",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-20)",
					"default":     20,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// extractKeywordsTool returns the tool definition for extract_keywords
func extractKeywordsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "extract_keywords",
		Description: "List the dominant business-domain keywords of a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report analysis state and cache statistics for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop the project session state and every cached record",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// evictCacheTool returns the tool definition for evict_cache
func evictCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "evict_cache",
		Description: "Delete cached records older than the given age",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"max_age_hours": map[string]interface{}{
					"type":        "number",
					"description": "Records last written before this many hours ago are deleted",
					"default":     720,
					"minimum":     0,
				},
			},
		},
	}
}
