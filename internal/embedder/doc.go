// Package embedder generates L2-normalised vector embeddings for text.
//
// Remote providers speak the OpenAI /embeddings protocol, so one HTTP
// implementation serves OpenAI, Jina AI, Ollama and any compatible
// self-hosted server. The local provider needs no network at all.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "ollama"})
//	if errors.Is(err, embedder.ErrNoProviderEnabled) {
//	    // run without semantic search
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "export function getUser(id) { ... }",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Providers
//
//   - openai: api.openai.com, requires OPENAI_API_KEY
//   - jina: api.jina.ai, requires JINA_API_KEY
//   - ollama: http://localhost:11434/v1 by default, no key
//   - local: deterministic feature hashing of words and character
//     trigrams into 384 signed buckets
//   - none: disables embeddings (New returns ErrNoProviderEnabled)
//
// Setting BaseURL for openai or jina points the provider at a proxy or
// compatible server; the API key becomes optional.
//
// # Caching
//
// Every provider keeps an in-memory LRU of embeddings keyed by model and
// SHA-256 of the text. Cache reads return deep copies.
//
// # Error Handling
//
// Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff. Other 4xx responses fail immediately. All provider
// failures wrap ErrProviderFailed.
package embedder
