package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/pkg/types"
)

// EmbeddingStats summarises one GenerateEmbeddings run
type EmbeddingStats struct {
	Total     int           `json:"total"`
	Generated int           `json:"generated"`
	Cached    int           `json:"cached"`
	Failed    int           `json:"failed"`
	Provider  string        `json:"provider,omitempty"`
	Model     string        `json:"model,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// GenerateEmbeddings embeds every file whose cached embedding is missing,
// stale or from another model, one file at a time. A failing file is
// counted and logged and the loop moves on. Without an embedder nothing
// happens and the returned stats are empty.
//
// Any newly stored embedding invalidates the cached search results.
func (e *Engine) GenerateEmbeddings(ctx context.Context, files []types.SourceFile, progress ProgressReporter) (*EmbeddingStats, error) {
	stats := &EmbeddingStats{Total: len(files)}
	if e.embedder == nil {
		e.logger.Info("no embedding provider configured, skipping embeddings")
		return stats, nil
	}
	if !e.lock.TryAcquire() {
		return nil, ErrAnalysisInProgress
	}
	defer e.lock.Release()

	start := time.Now()
	progress = reporterOrNoop(progress)
	stats.Provider = e.embedder.Provider()
	stats.Model = e.embedder.Model()
	tables := e.tablesFor(files)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate embeddings: %w", err)
		}

		hash := cache.Hash(file.Content)
		if _, ok := e.lookupEmbedding(ctx, file.Path, hash); ok {
			stats.Cached++
		} else if err := e.embedFile(ctx, file, hash, tables[file.Path]); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("generate embeddings: %w", ctx.Err())
			}
			stats.Failed++
			e.metrics.EmbeddingFailed()
			e.logger.WithError(err).WithField("path", file.Path).Warn("embedding failed")
		} else {
			stats.Generated++
			e.metrics.EmbeddingGenerated()
		}

		progress.Report(types.Progress{Stage: StageEmbed, Done: i + 1, Total: len(files), File: file.Path})
	}

	if stats.Generated > 0 {
		e.cache.InvalidateSearchSnapshots(ctx)
	}

	stats.Duration = time.Since(start)
	e.logger.WithFields(logrus.Fields{
		"files":       stats.Total,
		"generated":   stats.Generated,
		"cached":      stats.Cached,
		"failed":      stats.Failed,
		"model":       stats.Model,
		"duration_ms": stats.Duration.Milliseconds(),
	}).Info("embeddings complete")
	return stats, nil
}

func (e *Engine) embedFile(ctx context.Context, file types.SourceFile, hash string, table types.SymbolTable) error {
	doc := e.chunker.Document(file, table)
	emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: doc})
	if err != nil {
		return err
	}
	if len(emb.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", embedder.ErrProviderFailed)
	}
	e.remember(file.Path, hash, emb)
	return e.cache.PutEmbedding(ctx, file.Path, hash, emb)
}

func (e *Engine) remember(path, hash string, emb *embedder.Embedding) {
	e.mu.Lock()
	e.embeddings[path] = embeddingEntry{hash: hash, emb: emb}
	e.mu.Unlock()
}

// lookupEmbedding returns the embedding of path if it matches hash and was
// produced by the current provider and model. Memory is consulted before
// the durable cache.
func (e *Engine) lookupEmbedding(ctx context.Context, path, hash string) (*embedder.Embedding, bool) {
	if e.embedder == nil {
		return nil, false
	}

	e.mu.RLock()
	entry, ok := e.embeddings[path]
	e.mu.RUnlock()
	if ok && entry.hash == hash && e.current(entry.emb) {
		return entry.emb, true
	}

	emb, ok := e.cache.GetEmbedding(ctx, path, hash)
	if !ok || !e.current(emb) {
		return nil, false
	}
	e.remember(path, hash, emb)
	return emb, true
}

// current reports whether emb came from the configured provider and model.
// Servers may report a tagged model name ("nomic-embed-text:latest").
func (e *Engine) current(emb *embedder.Embedding) bool {
	return emb.Provider == e.embedder.Provider() && strings.HasPrefix(emb.Model, e.embedder.Model())
}
