package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when a record is missing its key
	ErrInvalidRecord = errors.New("invalid record")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// single writer; also keeps one shared connection for ":memory:"
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the cache database at dbPath and
// applies pending migrations. Use ":memory:" for an ephemeral store.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// withTx runs fn inside a transaction, committing on success
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// stamp returns t as unix milliseconds, defaulting to the current time.
// created_at is numeric so comparisons behave the same on every driver.
func (s *SQLiteStorage) stamp(t time.Time) (time.Time, int64) {
	if t.IsZero() {
		t = s.now()
	}
	return t, t.UnixMilli()
}

// File embedding operations

func (s *SQLiteStorage) upsertFileEmbeddingWithQuerier(ctx context.Context, q querier, embedding *FileEmbedding) error {
	if embedding.Path == "" || embedding.ContentHash == "" {
		return ErrInvalidRecord
	}
	query := `
		INSERT INTO file_embeddings (path, content_hash, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
	`
	created, ms := s.stamp(embedding.CreatedAt)
	_, err := q.ExecContext(ctx, query,
		embedding.Path, embedding.ContentHash, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, ms)
	if err != nil {
		return fmt.Errorf("failed to upsert file embedding: %w", err)
	}
	embedding.CreatedAt = created
	return nil
}

func (s *SQLiteStorage) UpsertFileEmbedding(ctx context.Context, embedding *FileEmbedding) error {
	return s.upsertFileEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) GetFileEmbedding(ctx context.Context, path string) (*FileEmbedding, error) {
	query := `
		SELECT path, content_hash, vector, dimension, provider, model, created_at
		FROM file_embeddings
		WHERE path = ?
	`
	var (
		e  FileEmbedding
		ms int64
	)
	err := s.db.QueryRowContext(ctx, query, path).Scan(
		&e.Path, &e.ContentHash, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &ms,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(ms)
	return &e, nil
}

func (s *SQLiteStorage) DeleteFileEmbedding(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_embeddings WHERE path = ?`, path)
	return err
}

func (s *SQLiteStorage) ListFileEmbeddings(ctx context.Context) ([]*FileEmbedding, error) {
	query := `
		SELECT path, content_hash, vector, dimension, provider, model, created_at
		FROM file_embeddings
		ORDER BY path
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]*FileEmbedding, 0)
	for rows.Next() {
		var (
			e  FileEmbedding
			ms int64
		)
		if err := rows.Scan(&e.Path, &e.ContentHash, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &ms); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(ms)
		embeddings = append(embeddings, &e)
	}
	return embeddings, rows.Err()
}

// Project snapshot operations

func (s *SQLiteStorage) UpsertProjectSnapshot(ctx context.Context, snapshot *ProjectSnapshot) error {
	if snapshot.ProjectHash == "" {
		return ErrInvalidRecord
	}
	query := `
		INSERT INTO project_snapshots (project_hash, name, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_hash) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			created_at = excluded.created_at
	`
	created, ms := s.stamp(snapshot.CreatedAt)
	if _, err := s.db.ExecContext(ctx, query, snapshot.ProjectHash, snapshot.Name, snapshot.Payload, ms); err != nil {
		return fmt.Errorf("failed to upsert project snapshot: %w", err)
	}
	snapshot.CreatedAt = created
	return nil
}

func (s *SQLiteStorage) GetProjectSnapshot(ctx context.Context, projectHash string) (*ProjectSnapshot, error) {
	query := `
		SELECT project_hash, name, payload, created_at
		FROM project_snapshots
		WHERE project_hash = ?
	`
	var (
		p  ProjectSnapshot
		ms int64
	)
	err := s.db.QueryRowContext(ctx, query, projectHash).Scan(&p.ProjectHash, &p.Name, &p.Payload, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(ms)
	return &p, nil
}

// Search snapshot operations

func (s *SQLiteStorage) UpsertSearchSnapshot(ctx context.Context, snapshot *SearchSnapshot) error {
	if snapshot.ID == "" {
		return ErrInvalidRecord
	}
	query := `
		INSERT INTO search_snapshots (id, project_hash, mode, query, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_hash = excluded.project_hash,
			mode = excluded.mode,
			query = excluded.query,
			payload = excluded.payload,
			created_at = excluded.created_at
	`
	created, ms := s.stamp(snapshot.CreatedAt)
	_, err := s.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.ProjectHash, snapshot.Mode, snapshot.Query, snapshot.Payload, ms)
	if err != nil {
		return fmt.Errorf("failed to upsert search snapshot: %w", err)
	}
	snapshot.CreatedAt = created
	return nil
}

func (s *SQLiteStorage) GetSearchSnapshot(ctx context.Context, id string) (*SearchSnapshot, error) {
	query := `
		SELECT id, project_hash, mode, query, payload, created_at
		FROM search_snapshots
		WHERE id = ?
	`
	var (
		snap SearchSnapshot
		ms   int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&snap.ID, &snap.ProjectHash, &snap.Mode, &snap.Query, &snap.Payload, &ms,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snap.CreatedAt = time.UnixMilli(ms)
	return &snap, nil
}

func (s *SQLiteStorage) DeleteSearchSnapshots(ctx context.Context) (int64, error) {
	return deleteAllWithQuerier(ctx, s.querier(), NamespaceSearches)
}

// Maintenance operations

// deleteOlderThanWithQuerier removes records of one namespace created before cutoffMs
func deleteOlderThanWithQuerier(ctx context.Context, q querier, ns Namespace, cutoffMs int64) (int64, error) {
	// ns comes from the fixed Namespaces list, never from callers
	result, err := q.ExecContext(ctx, "DELETE FROM "+string(ns)+" WHERE created_at < ?", cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("failed to evict %s: %w", ns, err)
	}
	return result.RowsAffected()
}

func deleteAllWithQuerier(ctx context.Context, q querier, ns Namespace) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM "+string(ns))
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", ns, err)
	}
	return result.RowsAffected()
}

// EvictOlderThan removes every record created before cutoff, regardless of
// how recently it was read. Each namespace is evicted in its own transaction.
func (s *SQLiteStorage) EvictOlderThan(ctx context.Context, cutoff time.Time) (*EvictionResult, error) {
	result := &EvictionResult{Removed: make(map[Namespace]int64, len(Namespaces))}
	for _, ns := range Namespaces {
		err := s.withTx(ctx, func(q querier) error {
			n, err := deleteOlderThanWithQuerier(ctx, q, ns, cutoff.UnixMilli())
			if err != nil {
				return err
			}
			result.Removed[ns] = n
			return nil
		})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Clear removes all records from every namespace
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	for _, ns := range Namespaces {
		err := s.withTx(ctx, func(q querier) error {
			_, err := deleteAllWithQuerier(ctx, q, ns)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	counts := []struct {
		ns  Namespace
		dst *int
	}{
		{NamespaceEmbeddings, &status.Embeddings},
		{NamespaceProjects, &status.ProjectSnapshots},
		{NamespaceSearches, &status.SearchSnapshots},
	}
	var oldest int64
	for _, c := range counts {
		var (
			n     int
			first sql.NullInt64
		)
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(created_at) FROM "+string(c.ns)).Scan(&n, &first)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.ns, err)
		}
		*c.dst = n
		if first.Valid && (oldest == 0 || first.Int64 < oldest) {
			oldest = first.Int64
		}
	}
	if oldest > 0 {
		status.OldestRecord = time.UnixMilli(oldest)
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}
