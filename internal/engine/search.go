package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/graph"
	"github.com/dshills/contextrank/internal/searcher"
	"github.com/dshills/contextrank/pkg/types"
)

// HybridSearch ranks files against keyword using structure and semantic
// evidence. At most the configured maximum (20 by default) results are
// returned; a query nothing matches yields an empty list.
func (e *Engine) HybridSearch(ctx context.Context, keyword string, files []types.SourceFile) ([]types.RankedResult, error) {
	return e.search(ctx, types.ModeHybrid, keyword, files, "")
}

// TriModelSearch ranks files using structure, semantic, relationship and
// classification signals. entryPoint is optional; when given it must be
// one of files.
func (e *Engine) TriModelSearch(ctx context.Context, keyword string, files []types.SourceFile, entryPoint string) ([]types.RankedResult, error) {
	return e.search(ctx, types.ModeTriModel, keyword, files, entryPoint)
}

func (e *Engine) search(ctx context.Context, mode types.SearchMode, keyword string, files []types.SourceFile, entryPoint string) ([]types.RankedResult, error) {
	e.mu.RLock()
	name := e.projectName
	analysedHash := e.projectHash
	analysedGraph := e.graph
	e.mu.RUnlock()

	projectHash := cache.ProjectHash(name, files)
	key := cache.SearchKey{
		Mode:        mode,
		ProjectHash: projectHash,
		Query:       keyword,
		EntryPoint:  entryPoint,
		Model:       e.modelKey(mode),
		Scoring:     e.scoring.Fingerprint(),
	}
	if results, ok := e.cache.GetSearchSnapshot(ctx, key); ok {
		e.logger.WithFields(logrus.Fields{"query": keyword, "mode": mode}).Debug("search served from snapshot")
		return results, nil
	}

	tables := e.tablesFor(files)
	g := analysedGraph
	if projectHash != analysedHash || g == nil {
		g = graph.Build(files, tables)
	}

	req := searcher.Request{
		Query:      keyword,
		Files:      files,
		Tables:     tables,
		Graph:      g,
		EntryPoint: entryPoint,
	}
	if e.embedder != nil {
		req.Lookup = func(ctx context.Context, f types.SourceFile) ([]float32, bool) {
			emb, ok := e.lookupEmbedding(ctx, f.Path, cache.Hash(f.Content))
			if !ok {
				return nil, false
			}
			return emb.Vector, true
		}
	}

	out, err := e.searcher.Run(ctx, mode, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	if out.Degraded {
		e.logger.WithFields(logrus.Fields{"query": keyword, "mode": mode}).Debug("provider failures during search, snapshot not stored")
		return out.Results, nil
	}
	if err := e.cache.PutSearchSnapshot(ctx, key, out.Results); err != nil {
		e.logger.WithError(err).WithField("query", keyword).Warn("failed to store search snapshot")
	}
	return out.Results, nil
}

// modelKey names the models whose output a search depends on
func (e *Engine) modelKey(mode types.SearchMode) string {
	var key string
	if e.embedder != nil {
		key = e.embedder.Provider() + "/" + e.embedder.Model()
	}
	if mode == types.ModeTriModel && e.generator != nil {
		key += "+" + e.generator.Model()
	}
	return key
}
