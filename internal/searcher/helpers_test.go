package searcher

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/parser"
	"github.com/dshills/contextrank/pkg/types"
)

// fakeEmbedder returns fixed vectors by text, fallback otherwise
type fakeEmbedder struct {
	vectors   map[string][]float32
	fallback  []float32
	failQuery bool
	failBatch bool
	batches   int32
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return f.fallback
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if f.failQuery {
		return nil, errors.New("provider down")
	}
	v := f.vector(req.Text)
	return &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "fake", Model: "fake"}, nil
}

func (f *fakeEmbedder) GenerateBatch(_ context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	atomic.AddInt32(&f.batches, 1)
	if f.failBatch {
		return nil, errors.New("batch failed")
	}
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		v := f.vector(text)
		out[i] = &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "fake", Model: "fake"}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "fake", Model: "fake"}, nil
}

func (f *fakeEmbedder) Dimension() int   { return len(f.fallback) }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Model() string    { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

// staticLookup serves stored embeddings from a map
func staticLookup(vectors map[string][]float32) EmbeddingLookup {
	return func(_ context.Context, f types.SourceFile) ([]float32, bool) {
		v, ok := vectors[f.Path]
		return v, ok
	}
}

// countingThrottle records how often it was awaited
type countingThrottle struct {
	waits int32
}

func (c *countingThrottle) Wait(ctx context.Context) error {
	atomic.AddInt32(&c.waits, 1)
	return ctx.Err()
}

func tablesFor(files []types.SourceFile) map[string]types.SymbolTable {
	tables := make(map[string]types.SymbolTable, len(files))
	for _, f := range files {
		tables[f.Path] = parser.Extract(f.Content, f.Path)
	}
	return tables
}

func scenarioAFiles() []types.SourceFile {
	return []types.SourceFile{
		{Path: "src/userService.js", Content: "function getUser(id){ return db.find(id) }"},
		{Path: "src/userController.js", Content: "import {getUser} from './userService'\nfunction handleGetUser(req,res){ return getUser(req.id) }"},
	}
}

func orderFiles() []types.SourceFile {
	return []types.SourceFile{
		{Path: "src/db.js", Content: "export function query(sql) { return sql }"},
		{Path: "src/orderService.js", Content: "import { query } from './db'\nexport function getOrder(id) { return query(id) }\nexport function getOrders() { return query('all') }"},
		{Path: "src/orderController.js", Content: "import { getOrder } from './orderService'\nimport { query } from './db'\nfunction show(req) { return getOrder(req.id) }"},
		{Path: "scripts/seed.js", Content: "const x = 1"},
	}
}
