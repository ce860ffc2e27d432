// Package engine owns a project session and exposes the query API.
//
// An Engine holds the symbol tables, dependency graph and keywords of the
// last analysed file set, plus an in-memory copy of file embeddings.
// Durable reuse across processes goes through an injected cache.Cache.
//
//	e := engine.New(
//	    engine.WithCache(cache.Open(dbPath)),
//	    engine.WithEmbedder(emb),
//	    engine.WithGenerator(gen),
//	)
//
//	if _, err := e.AnalyzeProject(ctx, "shop", files, nil); err != nil {
//	    return err
//	}
//	if _, err := e.GenerateEmbeddings(ctx, files, nil); err != nil {
//	    return err
//	}
//	results, err := e.TriModelSearch(ctx, "checkout", files, "src/cart.js")
//
// AnalyzeProject and GenerateEmbeddings are serialised by an AnalysisLock;
// a second concurrent call fails with ErrAnalysisInProgress. Searches may
// run concurrently with each other.
package engine
