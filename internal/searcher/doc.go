// Package searcher ranks source files against a natural-language query.
//
// Two independent detectives look at every file:
//
//   - the structure scorer matches query tokens against paths, declared
//     symbols, imports and raw content (ScoreStructure)
//   - the semantic scorer compares a query embedding with stored file
//     embeddings, blended with a "file named ..." embedding (Semantic)
//
// Hybrid merges the two. Structure scores are normalised by the largest
// one, both signals are weighted, and files found by both detectives get a
// synergy multiplier.
//
// TriModel adds two more signals on top of the hybrid candidates: a
// relationship score derived from the dependency graph and an optional
// entry point, and a role classification produced by a generative model.
// Classification runs in throttled batches and degrades to "unknown" for
// any file the model cannot label.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(emb, gen, searcher.DefaultConfig())
//
//	results, err := s.TriModel(ctx, searcher.Request{
//	    Query:      "order checkout",
//	    Files:      files,
//	    Tables:     tables,
//	    Graph:      graph.Build(files, tables),
//	    Lookup:     lookup,
//	    EntryPoint: "src/orderController.js",
//	})
//
// Either capability may be nil. Without an embedder the semantic signal is
// absent; without a generator only the entry point is classified.
package searcher
