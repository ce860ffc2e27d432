// Package cache is the content-addressable cache in front of the durable
// store.
//
// Keys are content hashes, never timestamps: a file embedding is reused
// only while the file's SHA-256 matches the hash it was computed from, and
// project snapshots are keyed by ProjectHash, a digest of every file's
// path and content hash.
//
// The cache is advisory. When the store cannot be opened the cache runs in
// unavailable mode where every Get misses and every Put is a no-op, so
// ranking still works, only slower:
//
//	c := cache.Open(".contextrank/cache.db", cache.WithLogger(log))
//	defer c.Close()
//
//	if emb, ok := c.GetEmbedding(ctx, file.Path, cache.Hash(file.Content)); ok {
//	    // reuse emb.Vector
//	}
//
// Records older than DefaultMaxAge are removed by EvictOlderThan whether or
// not they were read recently.
package cache
