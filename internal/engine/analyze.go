package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/graph"
	"github.com/dshills/contextrank/internal/keywords"
	"github.com/dshills/contextrank/pkg/types"
)

// Analysis summarises one AnalyzeProject run
type Analysis struct {
	Name        string                   `json:"name"`
	ProjectHash string                   `json:"projectHash"`
	FileCount   int                      `json:"fileCount"`
	Extracted   int                      `json:"extracted"` // files parsed this run
	Reused      int                      `json:"reused"`    // files whose symbols were already known
	Failed      int                      `json:"failed"`
	SymbolCount int                      `json:"symbolCount"`
	EdgeCount   int                      `json:"edgeCount"`
	Keywords    []types.ExtractedKeyword `json:"keywords"`
	// SnapshotReused is true when the project snapshot for this exact file
	// set was found in the cache
	SnapshotReused bool          `json:"snapshotReused"`
	Duration       time.Duration `json:"duration"`
}

// AnalyzeProject extracts symbols from every file, builds the dependency
// graph and mines domain keywords. Symbols of files whose content hash is
// unchanged since the last run are reused. Keywords come from the cached
// project snapshot when the project hash matches and are stored otherwise.
//
// A file whose extraction fails contributes no symbols. Only cancellation
// or a concurrent run makes the call fail.
func (e *Engine) AnalyzeProject(ctx context.Context, name string, files []types.SourceFile, progress ProgressReporter) (*Analysis, error) {
	if !e.lock.TryAcquire() {
		return nil, ErrAnalysisInProgress
	}
	defer e.lock.Release()

	start := time.Now()
	progress = reporterOrNoop(progress)
	projectHash := cache.ProjectHash(name, files)

	e.mu.RLock()
	known := make(map[string]symbolEntry, len(e.symbols))
	if e.projectName == name {
		for path, entry := range e.symbols {
			known[path] = entry
		}
	}
	e.mu.RUnlock()

	entries, stats, err := e.extractAll(ctx, files, known, progress)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", name, err)
	}

	tables := make(map[string]types.SymbolTable, len(entries))
	symbolCount := 0
	for path, entry := range entries {
		tables[path] = entry.table
		symbolCount += entry.table.Count()
	}
	g := graph.Build(files, tables)

	analysis := &Analysis{
		Name:        name,
		ProjectHash: projectHash,
		FileCount:   len(files),
		Extracted:   int(stats.extracted),
		Reused:      int(stats.reused),
		Failed:      int(stats.failed),
		SymbolCount: symbolCount,
		EdgeCount:   g.EdgeCount(),
	}

	if snap, ok := e.cache.GetProjectSnapshot(ctx, projectHash); ok {
		analysis.Keywords = snap.Keywords
		analysis.SnapshotReused = true
	} else {
		analysis.Keywords = keywords.Extract(files, tables)
		snap := &types.ProjectSnapshot{
			ProjectHash: projectHash,
			Name:        name,
			FileCount:   len(files),
			SymbolCount: symbolCount,
			EdgeCount:   analysis.EdgeCount,
			Keywords:    analysis.Keywords,
		}
		if err := e.cache.PutProjectSnapshot(ctx, snap); err != nil {
			e.logger.WithError(err).WithField("project", name).Warn("failed to store project snapshot")
		}
	}
	if analysis.Keywords == nil {
		analysis.Keywords = []types.ExtractedKeyword{}
	}

	e.mu.Lock()
	e.symbols = entries
	e.graph = g
	e.keywords = analysis.Keywords
	e.projectName = name
	e.projectHash = projectHash
	e.analyzedAt = time.Now()
	e.mu.Unlock()

	analysis.Duration = time.Since(start)
	e.metrics.FilesAnalyzed(analysis.Extracted)
	e.logger.WithFields(logrus.Fields{
		"project":     name,
		"files":       analysis.FileCount,
		"extracted":   analysis.Extracted,
		"reused":      analysis.Reused,
		"failed":      analysis.Failed,
		"edges":       analysis.EdgeCount,
		"snapshot":    analysis.SnapshotReused,
		"duration_ms": analysis.Duration.Milliseconds(),
	}).Info("analysis complete")
	return analysis, nil
}

type extractStats struct {
	extracted int32
	reused    int32
	failed    int32
}

// extractAll runs symbol extraction over a bounded worker pool
func (e *Engine) extractAll(ctx context.Context, files []types.SourceFile, known map[string]symbolEntry, progress ProgressReporter) (map[string]symbolEntry, *extractStats, error) {
	stats := &extractStats{}
	entries := make(map[string]symbolEntry, len(files))
	var mu sync.Mutex
	var done int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			hash := cache.Hash(file.Content)
			entry, ok := known[file.Path]
			if ok && entry.hash == hash {
				atomic.AddInt32(&stats.reused, 1)
			} else {
				table, err := e.extract(file)
				if err != nil {
					atomic.AddInt32(&stats.failed, 1)
					e.logger.WithError(err).WithField("path", file.Path).Warn("symbol extraction failed")
				} else {
					atomic.AddInt32(&stats.extracted, 1)
				}
				entry = symbolEntry{hash: hash, table: table}
			}

			mu.Lock()
			entries[file.Path] = entry
			mu.Unlock()

			progress.Report(types.Progress{
				Stage: StageAnalyze,
				Done:  int(atomic.AddInt32(&done, 1)),
				Total: len(files),
				File:  file.Path,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return entries, stats, nil
}

// extract runs the symbol extractor. A non-nil error means some stages
// failed; the table still holds what the other stages found.
func (e *Engine) extract(file types.SourceFile) (types.SymbolTable, error) {
	return e.extractor(file.Content, file.Path)
}

// tablesFor returns symbol tables for files, extracting and remembering
// any the engine does not know at their current content
func (e *Engine) tablesFor(files []types.SourceFile) map[string]types.SymbolTable {
	tables := make(map[string]types.SymbolTable, len(files))
	var missing []types.SourceFile
	hashes := make(map[string]string, len(files))

	e.mu.RLock()
	for _, f := range files {
		hash := cache.Hash(f.Content)
		hashes[f.Path] = hash
		if entry, ok := e.symbols[f.Path]; ok && entry.hash == hash {
			tables[f.Path] = entry.table
			continue
		}
		missing = append(missing, f)
	}
	e.mu.RUnlock()

	if len(missing) == 0 {
		return tables
	}

	extracted := make(map[string]symbolEntry, len(missing))
	for _, f := range missing {
		table, err := e.extract(f)
		if err != nil {
			e.logger.WithError(err).WithField("path", f.Path).Warn("symbol extraction failed")
		}
		tables[f.Path] = table
		extracted[f.Path] = symbolEntry{hash: hashes[f.Path], table: table}
	}

	e.mu.Lock()
	for path, entry := range extracted {
		e.symbols[path] = entry
	}
	e.mu.Unlock()
	return tables
}
