package searcher

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/chunker"
	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/pkg/types"
)

// EmbeddingLookup returns the stored embedding of file if one is valid for
// its current content.
type EmbeddingLookup func(ctx context.Context, file types.SourceFile) ([]float32, bool)

// LLMMatch is a file's semantic similarity to the query
type LLMMatch struct {
	File          string
	Score         float64 // blended similarity
	ContentScore  float64
	FilenameScore float64
	HasFilename   bool
	Embedding     []float32
}

// Semantic scores files by embedding similarity to the query
type Semantic struct {
	embedder embedder.Embedder
	cfg      Config
	logger   logrus.FieldLogger
}

// NewSemantic creates a semantic scorer. A nil embedder is allowed and
// makes Score return no matches.
func NewSemantic(emb embedder.Embedder, cfg Config, logger logrus.FieldLogger) *Semantic {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Semantic{embedder: emb, cfg: cfg, logger: logger}
}

// Available reports whether an embedding provider is configured
func (s *Semantic) Available() bool {
	return s != nil && s.embedder != nil
}

// Score embeds the query once and compares it with the stored embedding of
// every file lookup can supply. Files without a stored embedding are not
// scored; nothing is embedded here besides the query and file names.
//
// Content similarity is blended with the similarity of a short
// "file named ..." text. If the filename embedding cannot be produced the
// content similarity stands alone.
func (s *Semantic) Score(ctx context.Context, query string, files []types.SourceFile, lookup EmbeddingLookup) ([]LLMMatch, error) {
	matches, _, err := s.score(ctx, query, files, lookup)
	return matches, err
}

// score is Score that also reports whether a provider call failed, so the
// matches are weaker than a healthy provider would have produced.
func (s *Semantic) score(ctx context.Context, query string, files []types.SourceFile, lookup EmbeddingLookup) ([]LLMMatch, bool, error) {
	if !s.Available() || lookup == nil || strings.TrimSpace(query) == "" {
		return nil, false, nil
	}

	queryEmb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		s.logger.WithError(err).WithField("query", query).Warn("query embedding failed, semantic signal skipped")
		return nil, true, nil
	}

	type candidate struct {
		file   types.SourceFile
		vector []float32
	}
	var candidates []candidate
	for _, f := range files {
		if vec, ok := lookup(ctx, f); ok {
			candidates = append(candidates, candidate{file: f, vector: vec})
		}
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.file.Path
	}
	filenameVecs, partial := s.filenameEmbeddings(ctx, paths)

	var matches []LLMMatch
	for _, c := range candidates {
		content := CosineSimilarity(queryEmb.Vector, c.vector)
		m := LLMMatch{File: c.file.Path, Score: content, ContentScore: content, Embedding: c.vector}

		if vec, ok := filenameVecs[chunker.FilenameText(c.file.Path)]; ok {
			m.FilenameScore = CosineSimilarity(queryEmb.Vector, vec)
			m.HasFilename = true
			total := s.cfg.ContentBlend + s.cfg.FilenameBlend
			m.Score = (s.cfg.ContentBlend*content + s.cfg.FilenameBlend*m.FilenameScore) / total
		}

		if s.cfg.MinSimilarity > 0 && m.Score < s.cfg.MinSimilarity {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, partial, nil
}

// filenameEmbeddings embeds the distinct filename texts of paths in
// batches. Texts whose batch fails are absent from the result and partial
// is set.
func (s *Semantic) filenameEmbeddings(ctx context.Context, paths []string) (out map[string][]float32, partial bool) {
	seen := make(map[string]struct{}, len(paths))
	var texts []string
	for _, p := range paths {
		text := chunker.FilenameText(p)
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}

	out = make(map[string][]float32, len(texts))
	for start := 0; start < len(texts); start += embedder.DefaultBatchSize {
		end := start + embedder.DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := s.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: batch})
		if err != nil || len(resp.Embeddings) != len(batch) {
			s.logger.WithError(err).WithField("count", len(batch)).Debug("filename embeddings unavailable, using content similarity")
			partial = true
			continue
		}
		for i, emb := range resp.Embeddings {
			out[batch[i]] = emb.Vector
		}
	}
	return out, partial
}
