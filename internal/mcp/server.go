package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/source"
)

const (
	// ServerName is the MCP server name
	ServerName = "contextrank"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes project sessions as MCP tools
type Server struct {
	mcp      *server.MCPServer
	sessions *engine.Sessions
	cache    *cache.Cache
	source   source.Options
	logger   logrus.FieldLogger
}

// Option configures a Server
type Option func(*Server)

// WithSourceOptions sets how project files are loaded from disk
func WithSourceOptions(opts source.Options) Option {
	return func(s *Server) { s.source = opts }
}

// WithLogger sets the server logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an MCP server over sessions. c is the cache shared by
// every session; evict_cache operates on it directly.
func NewServer(sessions *engine.Sessions, c *cache.Cache, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		sessions: sessions,
		cache:    c,
		source:   source.DefaultOptions(),
		logger:   discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcp.AddTools(s.tools()...)
	return s
}

// tools pairs every tool definition with its handler
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: analyzeProjectTool(), Handler: s.handleAnalyzeProject},
		{Tool: generateEmbeddingsTool(), Handler: s.handleGenerateEmbeddings},
		{Tool: searchFilesTool(), Handler: s.handleSearchFiles},
		{Tool: triModelSearchTool(), Handler: s.handleTriModelSearch},
		{Tool: extractKeywordsTool(), Handler: s.handleExtractKeywords},
		{Tool: getStatusTool(), Handler: s.handleGetStatus},
		{Tool: clearCacheTool(), Handler: s.handleClearCache},
		{Tool: evictCacheTool(), Handler: s.handleEvictCache},
	}
}

// Serve runs the MCP protocol on stdin and stdout until ctx is done or
// stdin is closed.
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the MCP protocol over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	s.logger.WithField("tools", len(s.tools())).Info("MCP server listening on stdio")
	return stdio.Listen(ctx, in, out)
}
