// Package mcp implements the Model Context Protocol (MCP) server for contextrank.
//
// The server exposes the ranking engine to AI coding assistants as tools:
//   - analyze_project: extract symbols, build the dependency graph, mine keywords
//   - generate_embeddings: embed files so searches gain the semantic signal
//   - search_files: hybrid ranking (structure + semantics)
//   - tri_model_search: hybrid ranking plus entry-point relationships and role classification
//   - extract_keywords: dominant business-domain terms of a project
//   - get_status: session state and cache statistics
//   - clear_cache, evict_cache: cache maintenance
//
// Every project tool takes an absolute "path"; files are loaded from disk
// with the configured source filters on each call, and one engine session
// is kept per project root.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr; stdout carries protocol messages only.
//
// # Tool: search_files
//
//	Request:
//	{
//	  "name": "search_files",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "query": "order checkout",
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "mode": "hybrid",
//	  "query": "order checkout",
//	  "count": 2,
//	  "results": [
//	    {"file": "src/orderService.js", "finalScore": 1.64, "scorePercentage": 100, ...},
//	    ...
//	  ]
//	}
//
// # Progress
//
// analyze_project and generate_embeddings send notifications/progress
// messages when the request carries a progress token.
//
// # Errors
//
// Tool failures are returned as MCPError values with JSON-RPC codes:
//
//	-32602  invalid parameters (bad path, limit, unknown entry point)
//	-32603  internal error
//	-32001  project files could not be loaded
//	-32002  another analysis of the project is running
//	-32003  no source files passed the filters
//	-32004  empty query
package mcp
