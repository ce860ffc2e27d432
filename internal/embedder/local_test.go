package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "UserService handles login"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "UserService handles login"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Len(t, a.Vector, LocalDimension)
	assert.Equal(t, LocalDimension, p.Dimension())
	assert.InDelta(t, 1.0, norm(a.Vector), 1e-5)
	assert.Equal(t, ProviderLocal, a.Provider)
	assert.Equal(t, DefaultLocalModel, a.Model)
}

func TestLocalProvider_LexicalOverlap(t *testing.T) {
	p, _ := NewLocalProvider(nil)
	ctx := context.Background()

	q, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "user account"})
	near, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "file named user account controller"})
	far, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "stripe webhook signature"})

	assert.Greater(t, dot(q.Vector, near.Vector), dot(q.Vector, far.Vector))
}

func TestLocalProvider_Cache(t *testing.T) {
	cache := NewCache(10)
	p, _ := NewLocalProvider(cache)

	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())
}

func TestLocalProvider_Batch(t *testing.T) {
	p, _ := NewLocalProvider(nil)
	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)

	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocalProvider_Cancelled(t *testing.T) {
	p, _ := NewLocalProvider(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkLocalProvider(b *testing.B) {
	p, _ := NewLocalProvider(nil)
	ctx := context.Background()
	req := EmbeddingRequest{Text: "export class OrderController { async create(req, res) { return this.orders.save(req.body) } }"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.GenerateEmbedding(ctx, req)
	}
}
