package searcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/graph"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/pkg/types"
)

// ErrEntryPointNotFound is returned when a tri-model entry point is not
// among the searched files
var ErrEntryPointNotFound = errors.New("entry point not found")

// Request is one search over an analysed file set
type Request struct {
	Query  string
	Files  []types.SourceFile
	Tables map[string]types.SymbolTable
	Graph  *graph.Graph
	// Lookup supplies stored file embeddings; nil disables the semantic signal
	Lookup EmbeddingLookup
	// EntryPoint optionally anchors tri-model relationship scoring
	EntryPoint string
}

// Searcher runs the hybrid and tri-model pipelines
type Searcher struct {
	semantic   *Semantic
	classifier *Classifier
	cfg        Config
	throttle   Throttle
	logger     logrus.FieldLogger
	metrics    *metrics.Collector
}

// Option configures a Searcher
type Option func(*Searcher)

// WithThrottle sets the pacing of classifier batches
func WithThrottle(t Throttle) Option {
	return func(s *Searcher) { s.throttle = t }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithMetrics records search counts and latency
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Searcher) { s.metrics = m }
}

// NewSearcher creates a searcher. Either capability may be nil; the
// matching signal is then simply absent. Without WithThrottle classifier
// batches are paced by cfg.TriModel.BatchInterval.
func NewSearcher(emb embedder.Embedder, gen generator.Generator, cfg Config, opts ...Option) *Searcher {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Searcher{cfg: cfg, logger: discard}
	for _, opt := range opts {
		opt(s)
	}
	if s.throttle == nil {
		s.throttle = NewThrottle(cfg.TriModel.BatchInterval)
	}

	s.semantic = NewSemantic(emb, cfg, s.logger)
	s.classifier = NewClassifier(gen, s.throttle, cfg.TriModel, s.logger, s.metrics)
	return s
}

// Config returns the scoring configuration
func (s *Searcher) Config() Config {
	return s.cfg
}

// Outcome is the result of one search run
type Outcome struct {
	Results []types.RankedResult
	// Degraded is set when a configured provider failed during the run:
	// the query or filename embedding, or the classification of any file.
	// Such results are valid but must not be reused once the provider
	// recovers.
	Degraded bool
}

// Run executes one search in the given mode
func (s *Searcher) Run(ctx context.Context, mode types.SearchMode, req Request) (*Outcome, error) {
	if mode == types.ModeTriModel {
		return s.triModel(ctx, req)
	}
	return s.hybrid(ctx, req)
}

// detectives runs the structure and semantic scorers concurrently
func (s *Searcher) detectives(ctx context.Context, req Request) ([]ASTMatch, []LLMMatch, bool, error) {
	var ast []ASTMatch
	var llm []LLMMatch
	var degraded bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ast = ScoreStructure(req.Query, req.Files, req.Tables, s.cfg)
		return nil
	})
	g.Go(func() error {
		var err error
		llm, degraded, err = s.semantic.score(gctx, req.Query, req.Files, req.Lookup)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, false, err
	}
	return ast, llm, degraded, nil
}

// Hybrid ranks files by structure and semantic evidence combined, returning
// at most cfg.MaxResults results. A query nothing matches yields an empty,
// non-nil slice.
func (s *Searcher) Hybrid(ctx context.Context, req Request) ([]types.RankedResult, error) {
	out, err := s.hybrid(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (s *Searcher) hybrid(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	ast, llm, degraded, err := s.detectives(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	results := ToRankedResults(Combine(ast, llm, s.cfg.combineOptions()), s.cfg.MaxResults)

	s.metrics.ObserveSearch(string(types.ModeHybrid), time.Since(start))
	s.logger.WithFields(logrus.Fields{
		"query":       req.Query,
		"mode":        types.ModeHybrid,
		"structure":   len(ast),
		"semantic":    len(llm),
		"results":     len(results),
		"degraded":    degraded,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("search complete")
	return &Outcome{Results: results, Degraded: degraded}, nil
}
