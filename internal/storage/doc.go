// Package storage provides SQLite-based persistence for the analysis cache.
//
// The store holds three independent namespaces:
//   - file_embeddings: one embedding per file path, tagged with the content
//     hash it was computed from
//   - project_snapshots: encoded analysis summaries keyed by project hash
//   - search_snapshots: encoded ranked results keyed by a query id
//
// Every table carries created_at (unix milliseconds) with an index so
// age-based eviction is a single indexed delete per namespace.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.contextrank/cache.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.UpsertFileEmbedding(ctx, &storage.FileEmbedding{
//	    Path:        "src/userService.js",
//	    ContentHash: hash,
//	    Vector:      storage.SerializeVector(vec),
//	    Dimension:   len(vec),
//	    Provider:    "openai",
//	    Model:       "text-embedding-3-small",
//	})
//
// Reads return ErrNotFound when no record exists. Hash validation is the
// caller's job (see internal/cache): the store returns whatever is recorded
// for a key.
//
// # Eviction
//
//	res, err := db.EvictOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
//	fmt.Println(res.Total(), "records removed")
//
// Eviction ignores access recency. Each namespace is evicted in its own
// transaction; there is no atomicity across namespaces.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Schema changes are versioned with semantic versions and applied in
// order on open; see AllMigrations.
package storage
