package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/chunker"
	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/graph"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/internal/parser"
	"github.com/dshills/contextrank/internal/searcher"
	"github.com/dshills/contextrank/pkg/types"
)

// ErrAnalysisInProgress is returned when an analysis or embedding run is
// already underway on the engine
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Engine is one project session. It owns the symbol cache, dependency graph
// and keyword list of the last analysed file set and runs searches over
// them. Capabilities (cache, embedder, generator) are injected and may be
// absent; every signal that needs a missing capability is simply skipped.
type Engine struct {
	cache     *cache.Cache
	embedder  embedder.Embedder
	generator generator.Generator
	throttle  searcher.Throttle
	scoring   searcher.Config
	logger    logrus.FieldLogger
	metrics   *metrics.Collector
	workers   int

	chunker   *chunker.Chunker
	searcher  *searcher.Searcher
	lock      AnalysisLock
	extractor func(content, path string) (types.SymbolTable, error)

	mu          sync.RWMutex
	symbols     map[string]symbolEntry
	embeddings  map[string]embeddingEntry
	graph       *graph.Graph
	keywords    []types.ExtractedKeyword
	projectName string
	projectHash string
	analyzedAt  time.Time
}

type symbolEntry struct {
	hash  string
	table types.SymbolTable
}

// embeddingEntry is an embedding held in memory, keyed by path and valid
// for content with the given hash
type embeddingEntry struct {
	hash string
	emb  *embedder.Embedding
}

// Option configures an Engine
type Option func(*Engine)

// WithCache sets the durable analysis cache
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithEmbedder enables the semantic signal
func WithEmbedder(emb embedder.Embedder) Option {
	return func(e *Engine) { e.embedder = emb }
}

// WithGenerator enables tri-model classification
func WithGenerator(gen generator.Generator) Option {
	return func(e *Engine) { e.generator = gen }
}

// WithThrottle sets the pacing of classification batches
func WithThrottle(t searcher.Throttle) Option {
	return func(e *Engine) { e.throttle = t }
}

// WithScoring overrides the scoring configuration
func WithScoring(cfg searcher.Config) Option {
	return func(e *Engine) { e.scoring = cfg }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithWorkers bounds concurrent symbol extraction (default runtime.NumCPU())
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New creates an engine. Without WithCache the engine keeps nothing between
// runs.
func New(opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		scoring:    searcher.DefaultConfig(),
		logger:     discard,
		workers:    runtime.NumCPU(),
		chunker:    chunker.New(),
		extractor:  parser.ExtractChecked,
		symbols:    make(map[string]symbolEntry),
		embeddings: make(map[string]embeddingEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New(nil)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}

	searchOpts := []searcher.Option{searcher.WithLogger(e.logger), searcher.WithMetrics(e.metrics)}
	if e.throttle != nil {
		searchOpts = append(searchOpts, searcher.WithThrottle(e.throttle))
	}
	e.searcher = searcher.NewSearcher(e.embedder, e.generator, e.scoring, searchOpts...)
	return e
}

// Keywords returns the domain keywords of the last analysis
func (e *Engine) Keywords() []types.ExtractedKeyword {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.ExtractedKeyword, len(e.keywords))
	copy(out, e.keywords)
	return out
}

// Dependencies returns the outgoing edges of path in the last analysis
func (e *Engine) Dependencies(path string) []types.DependencyEdge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Dependencies(path)
}

// Invalidate forgets the extracted symbols and embedding of path. The next analysis or
// search re-extracts it; a changed file already misses every hash-keyed
// cache entry.
func (e *Engine) Invalidate(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.symbols, path)
	delete(e.embeddings, path)
	e.projectHash = ""
}

// Reset drops all in-memory state. Call it when switching projects: files
// from different projects may share relative paths.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.symbols = make(map[string]symbolEntry)
	e.embeddings = make(map[string]embeddingEntry)
	e.graph = nil
	e.keywords = nil
	e.projectName = ""
	e.projectHash = ""
	e.analyzedAt = time.Time{}
}

// ClearCache resets the engine and empties the durable cache
func (e *Engine) ClearCache(ctx context.Context) error {
	e.Reset()
	return e.cache.Clear(ctx)
}

// EvictCache removes durable records older than maxAge
// (cache.DefaultMaxAge when maxAge <= 0) and returns how many went.
func (e *Engine) EvictCache(ctx context.Context, maxAge time.Duration) (int64, error) {
	return e.cache.EvictOlderThan(ctx, maxAge)
}

// Status describes the engine's session state
type Status struct {
	Project           string       `json:"project,omitempty"`
	ProjectHash       string       `json:"projectHash,omitempty"`
	Files             int          `json:"files"`
	Symbols           int          `json:"symbols"`
	Edges             int          `json:"edges"`
	Keywords          int          `json:"keywords"`
	AnalyzedAt        time.Time    `json:"analyzedAt,omitempty"`
	Analyzing         bool         `json:"analyzing"`
	EmbeddingProvider string       `json:"embeddingProvider,omitempty"`
	EmbeddingModel    string       `json:"embeddingModel,omitempty"`
	GeneratorModel    string       `json:"generatorModel,omitempty"`
	Cache             *cache.Stats `json:"cache"`
}

// Status reports the session state and cache statistics
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	stats, err := e.cache.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	e.mu.RLock()
	s := &Status{
		Project:     e.projectName,
		ProjectHash: e.projectHash,
		Files:       len(e.symbols),
		Edges:       e.graph.EdgeCount(),
		Keywords:    len(e.keywords),
		AnalyzedAt:  e.analyzedAt,
		Analyzing:   e.lock.Held(),
		Cache:       stats,
	}
	for _, entry := range e.symbols {
		s.Symbols += entry.table.Count()
	}
	e.mu.RUnlock()

	if e.embedder != nil {
		s.EmbeddingProvider = e.embedder.Provider()
		s.EmbeddingModel = e.embedder.Model()
	}
	if e.generator != nil {
		s.GeneratorModel = e.generator.Model()
	}
	return s, nil
}
