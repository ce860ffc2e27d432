package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/internal/storage"
	"github.com/dshills/contextrank/pkg/types"
)

func setupTestCache(t *testing.T, opts ...Option) (*Cache, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, opts...), store
}

func testEmbedding(v ...float32) *embedder.Embedding {
	return &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "local", Model: "feature-hash-384"}
}

func TestHash_Deterministic(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 100; i++ {
		content := faker.Paragraph(2, 3, 8, "\n")
		assert.Equal(t, Hash(content), Hash(content))
		assert.Len(t, Hash(content), 64)
		assert.NotEqual(t, Hash(content), Hash(content+" "))
	}
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
}

func TestProjectHash(t *testing.T) {
	files := []types.SourceFile{
		{Path: "src/a.js", Content: "export const a = 1"},
		{Path: "src/b.js", Content: "export const b = 2"},
		{Path: "lib/c.js", Content: "module.exports = {}"},
	}
	base := ProjectHash("shop", files)

	t.Run("order independent", func(t *testing.T) {
		reversed := []types.SourceFile{files[2], files[1], files[0]}
		assert.Equal(t, base, ProjectHash("shop", reversed))
	})

	t.Run("file added", func(t *testing.T) {
		more := append(append([]types.SourceFile{}, files...), types.SourceFile{Path: "src/d.js", Content: ""})
		assert.NotEqual(t, base, ProjectHash("shop", more))
	})

	t.Run("file removed", func(t *testing.T) {
		assert.NotEqual(t, base, ProjectHash("shop", files[:2]))
	})

	t.Run("file modified", func(t *testing.T) {
		changed := append([]types.SourceFile{}, files...)
		changed[1].Content = "export const b = 3"
		assert.NotEqual(t, base, ProjectHash("shop", changed))
	})

	t.Run("file renamed", func(t *testing.T) {
		renamed := append([]types.SourceFile{}, files...)
		renamed[0].Path = "src/z.js"
		assert.NotEqual(t, base, ProjectHash("shop", renamed))
	})

	t.Run("project name", func(t *testing.T) {
		assert.NotEqual(t, base, ProjectHash("store", files))
		assert.Equal(t, base, ProjectHash("/home/dev/shop/", files))
	})
}

func TestEmbedding_SameContentDifferentPaths(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	content := "function formatDate(d) { return d.toISOString() }"
	hash := Hash(content)
	require.Equal(t, hash, Hash(content), "identical content must hash identically")

	require.NoError(t, c.PutEmbedding(ctx, "src/utils/date.js", hash, testEmbedding(1, 0)))

	got, ok := c.GetEmbedding(ctx, "src/utils/date.js", hash)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, got.Vector)
	assert.Equal(t, hash, got.Hash)
	assert.Equal(t, "local", got.Provider)

	// keyed by path: a copy elsewhere is not served from the first record
	_, ok = c.GetEmbedding(ctx, "lib/date.js", hash)
	assert.False(t, ok)
}

func TestEmbedding_StaleHashMisses(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutEmbedding(ctx, "a.js", Hash("v1"), testEmbedding(1, 0)))

	_, ok := c.GetEmbedding(ctx, "a.js", Hash("v2"))
	assert.False(t, ok)

	require.NoError(t, c.PutEmbedding(ctx, "a.js", Hash("v2"), testEmbedding(0, 1)))
	got, ok := c.GetEmbedding(ctx, "a.js", Hash("v2"))
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1}, got.Vector)
}

func TestUnavailableCache(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	assert.False(t, c.Available())

	assert.NoError(t, c.PutEmbedding(ctx, "a.js", "h", testEmbedding(1)))
	_, ok := c.GetEmbedding(ctx, "a.js", "h")
	assert.False(t, ok)

	assert.NoError(t, c.PutProjectSnapshot(ctx, &types.ProjectSnapshot{ProjectHash: "p"}))
	_, ok = c.GetProjectSnapshot(ctx, "p")
	assert.False(t, ok)

	key := SearchKey{Mode: types.ModeHybrid, ProjectHash: "p", Query: "q"}
	assert.NoError(t, c.PutSearchSnapshot(ctx, key, []types.RankedResult{{File: "a.js"}}))
	_, ok = c.GetSearchSnapshot(ctx, key)
	assert.False(t, ok)

	removed, err := c.EvictOlderThan(ctx, 0)
	assert.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, c.Clear(ctx))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Available)
	assert.NoError(t, c.Close())
}

func TestOpen_BadPathIsUnavailable(t *testing.T) {
	c := Open("/nonexistent/dir/that/cannot/exist/cache.db")
	assert.False(t, c.Available())
	_, ok := c.GetEmbedding(context.Background(), "a.js", "h")
	assert.False(t, ok)
}

func TestStoreFailureIsMiss(t *testing.T) {
	c, store := setupTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.PutEmbedding(ctx, "a.js", "h", testEmbedding(1)))
	require.NoError(t, store.Close())

	_, ok := c.GetEmbedding(ctx, "a.js", "h")
	assert.False(t, ok)
}

func TestProjectSnapshot(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	snap := &types.ProjectSnapshot{
		ProjectHash: "abc",
		Name:        "shop",
		FileCount:   3,
		Keywords:    []types.ExtractedKeyword{{Keyword: "order", Frequency: 4, Confidence: 0.5}},
	}
	require.NoError(t, c.PutProjectSnapshot(ctx, snap))
	assert.False(t, snap.CreatedAt.IsZero())

	got, ok := c.GetProjectSnapshot(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, "shop", got.Name)
	assert.Equal(t, 3, got.FileCount)
	require.Len(t, got.Keywords, 1)
	assert.Equal(t, "order", got.Keywords[0].Keyword)

	_, ok = c.GetProjectSnapshot(ctx, "other")
	assert.False(t, ok)
}

func TestSearchSnapshot(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	key := SearchKey{Mode: types.ModeHybrid, ProjectHash: "p1", Query: "user auth", Model: "m"}
	results := []types.RankedResult{{File: "src/auth.js", FinalScore: 1.2, HasSynergy: true}}
	require.NoError(t, c.PutSearchSnapshot(ctx, key, results))

	got, ok := c.GetSearchSnapshot(ctx, key)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "src/auth.js", got[0].File)
	assert.True(t, got[0].HasSynergy)

	other := key
	other.ProjectHash = "p2"
	_, ok = c.GetSearchSnapshot(ctx, other)
	assert.False(t, ok, "a different project state must not share results")

	c.InvalidateSearchSnapshots(ctx)
	_, ok = c.GetSearchSnapshot(ctx, key)
	assert.False(t, ok)
}

func TestSearchKey_ID(t *testing.T) {
	a := SearchKey{Mode: types.ModeHybrid, ProjectHash: "p", Query: "q"}
	assert.Equal(t, a.ID(), a.ID())

	b := a
	b.Mode = types.ModeTriModel
	assert.NotEqual(t, a.ID(), b.ID())

	c := a
	c.EntryPoint = "src/index.js"
	assert.NotEqual(t, a.ID(), c.ID())

	d := a
	d.Scoring = "3f2a9c0d11e4b7a8"
	assert.NotEqual(t, a.ID(), d.ID(), "scoring settings are part of the key")

	// field boundaries are unambiguous
	x := SearchKey{Query: "ab", EntryPoint: "c"}
	y := SearchKey{Query: "a", EntryPoint: "bc"}
	assert.NotEqual(t, x.ID(), y.ID())
}

func TestEvictOlderThan(t *testing.T) {
	now := time.Now()
	c, store := setupTestCache(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old := now.Add(-31 * 24 * time.Hour)
	require.NoError(t, store.UpsertFileEmbedding(ctx, &storage.FileEmbedding{
		Path: "old.js", ContentHash: "h1", Vector: storage.SerializeVector([]float32{1}), Dimension: 1, CreatedAt: old,
	}))
	require.NoError(t, c.PutEmbedding(ctx, "new.js", "h2", testEmbedding(1)))

	// a read does not protect an old record
	_, ok := c.GetEmbedding(ctx, "old.js", "h1")
	require.True(t, ok)

	removed, err := c.EvictOlderThan(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok = c.GetEmbedding(ctx, "old.js", "h1")
	assert.False(t, ok)
	_, ok = c.GetEmbedding(ctx, "new.js", "h2")
	assert.True(t, ok)
}

func TestClearAndStats(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutEmbedding(ctx, "a.js", "h", testEmbedding(1)))
	require.NoError(t, c.PutProjectSnapshot(ctx, &types.ProjectSnapshot{ProjectHash: "p"}))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Available)
	assert.Equal(t, 1, stats.Embeddings)
	assert.Equal(t, 1, stats.ProjectSnapshots)

	require.NoError(t, c.Clear(ctx))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Embeddings)
	assert.Zero(t, stats.ProjectSnapshots)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	c, _ := setupTestCache(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, c.PutEmbedding(ctx, "a.js", "h", testEmbedding(1)))
	c.GetEmbedding(ctx, "a.js", "h")
	c.GetEmbedding(ctx, "a.js", "other")
	c.GetEmbedding(ctx, "b.js", "h")

	expected := `
# HELP contextrank_cache_lookups_total Durable cache lookups, by namespace and result.
# TYPE contextrank_cache_lookups_total counter
contextrank_cache_lookups_total{namespace="file_embeddings",result="hit"} 1
contextrank_cache_lookups_total{namespace="file_embeddings",result="miss"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "contextrank_cache_lookups_total"))
}
