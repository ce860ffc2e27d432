package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/internal/storage"
	"github.com/dshills/contextrank/pkg/types"
)

// DefaultMaxAge is the age after which records are evicted
const DefaultMaxAge = 30 * 24 * time.Hour

// searchNamespace scopes search snapshot ids
var searchNamespace = uuid.MustParse("6f1c1d52-4b0e-4a8e-9a57-3c6f3f9b2d41")

// Cache is the content-addressable analysis cache. It is advisory: every
// read may miss, store failures are logged and reported as misses, and a
// Cache without a store is permanently unavailable.
type Cache struct {
	store   storage.Storage
	logger  logrus.FieldLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger for store failures
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records hit and miss counts
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source used for eviction cutoffs
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New wraps store. A nil store yields an unavailable cache.
func New(store storage.Storage, opts ...Option) *Cache {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Cache{store: store, logger: discard, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens the SQLite store at dbPath. If it cannot be opened the
// returned cache is unavailable and the error is logged, never returned.
func Open(dbPath string, opts ...Option) *Cache {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		c := New(nil, opts...)
		c.logger.WithError(err).WithField("path", dbPath).Warn("cache unavailable, running without persistence")
		return c
	}
	return New(store, opts...)
}

// Available reports whether a durable store backs the cache
func (c *Cache) Available() bool {
	return c != nil && c.store != nil
}

// Close releases the underlying store
func (c *Cache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) lookup(ns storage.Namespace, hit bool) bool {
	c.metrics.CacheLookup(string(ns), hit)
	return hit
}

func (c *Cache) readFailed(ns storage.Namespace, key string, err error) {
	if !errors.Is(err, storage.ErrNotFound) {
		c.logger.WithError(err).WithFields(logrus.Fields{"namespace": ns, "key": key}).Warn("cache read failed")
	}
}

// GetEmbedding returns the cached embedding for path only if it was
// computed from content with the given hash.
func (c *Cache) GetEmbedding(ctx context.Context, path, hash string) (*embedder.Embedding, bool) {
	if !c.Available() {
		return nil, c.lookup(storage.NamespaceEmbeddings, false)
	}
	rec, err := c.store.GetFileEmbedding(ctx, path)
	if err != nil {
		c.readFailed(storage.NamespaceEmbeddings, path, err)
		return nil, c.lookup(storage.NamespaceEmbeddings, false)
	}
	if rec.ContentHash != hash {
		return nil, c.lookup(storage.NamespaceEmbeddings, false)
	}
	vector, err := rec.DecodeVector()
	if err != nil {
		c.readFailed(storage.NamespaceEmbeddings, path, err)
		return nil, c.lookup(storage.NamespaceEmbeddings, false)
	}
	return &embedder.Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  rec.Provider,
		Model:     rec.Model,
		Hash:      rec.ContentHash,
	}, c.lookup(storage.NamespaceEmbeddings, true)
}

// PutEmbedding stores the embedding of path's content with the given hash,
// replacing any earlier record for the path.
func (c *Cache) PutEmbedding(ctx context.Context, path, hash string, emb *embedder.Embedding) error {
	if !c.Available() || emb == nil {
		return nil
	}
	err := c.store.UpsertFileEmbedding(ctx, &storage.FileEmbedding{
		Path:        path,
		ContentHash: hash,
		Vector:      storage.SerializeVector(emb.Vector),
		Dimension:   len(emb.Vector),
		Provider:    emb.Provider,
		Model:       emb.Model,
	})
	if err != nil {
		return fmt.Errorf("cache embedding %s: %w", path, err)
	}
	return nil
}

// GetProjectSnapshot returns the analysis snapshot stored for projectHash
func (c *Cache) GetProjectSnapshot(ctx context.Context, projectHash string) (*types.ProjectSnapshot, bool) {
	if !c.Available() {
		return nil, c.lookup(storage.NamespaceProjects, false)
	}
	rec, err := c.store.GetProjectSnapshot(ctx, projectHash)
	if err != nil {
		c.readFailed(storage.NamespaceProjects, projectHash, err)
		return nil, c.lookup(storage.NamespaceProjects, false)
	}
	var snap types.ProjectSnapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil || snap.ProjectHash != projectHash {
		c.readFailed(storage.NamespaceProjects, projectHash, fmt.Errorf("corrupt snapshot: %v", err))
		return nil, c.lookup(storage.NamespaceProjects, false)
	}
	return &snap, c.lookup(storage.NamespaceProjects, true)
}

// PutProjectSnapshot stores snap under its ProjectHash
func (c *Cache) PutProjectSnapshot(ctx context.Context, snap *types.ProjectSnapshot) error {
	if !c.Available() || snap == nil {
		return nil
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = c.now()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode project snapshot: %w", err)
	}
	err = c.store.UpsertProjectSnapshot(ctx, &storage.ProjectSnapshot{
		ProjectHash: snap.ProjectHash,
		Name:        snap.Name,
		Payload:     payload,
		CreatedAt:   snap.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache project snapshot: %w", err)
	}
	return nil
}

// SearchKey identifies one search request against one project state
type SearchKey struct {
	Mode        types.SearchMode
	ProjectHash string
	Query       string
	EntryPoint  string
	Model       string // embedding model, "" when semantic search is off
	Scoring     string // fingerprint of the scoring configuration
}

// ID derives a stable name-based UUID for the key
func (k SearchKey) ID() string {
	name := strings.Join([]string{string(k.Mode), k.ProjectHash, k.Query, k.EntryPoint, k.Model, k.Scoring}, "\x00")
	return uuid.NewSHA1(searchNamespace, []byte(name)).String()
}

// GetSearchSnapshot returns previously stored results for key
func (c *Cache) GetSearchSnapshot(ctx context.Context, key SearchKey) ([]types.RankedResult, bool) {
	if !c.Available() {
		return nil, c.lookup(storage.NamespaceSearches, false)
	}
	id := key.ID()
	rec, err := c.store.GetSearchSnapshot(ctx, id)
	if err != nil {
		c.readFailed(storage.NamespaceSearches, id, err)
		return nil, c.lookup(storage.NamespaceSearches, false)
	}
	var results []types.RankedResult
	if err := json.Unmarshal(rec.Payload, &results); err != nil {
		c.readFailed(storage.NamespaceSearches, id, err)
		return nil, c.lookup(storage.NamespaceSearches, false)
	}
	return results, c.lookup(storage.NamespaceSearches, true)
}

// PutSearchSnapshot stores ranked results under key
func (c *Cache) PutSearchSnapshot(ctx context.Context, key SearchKey, results []types.RankedResult) error {
	if !c.Available() {
		return nil
	}
	if results == nil {
		results = []types.RankedResult{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode search snapshot: %w", err)
	}
	err = c.store.UpsertSearchSnapshot(ctx, &storage.SearchSnapshot{
		ID:          key.ID(),
		ProjectHash: key.ProjectHash,
		Mode:        string(key.Mode),
		Query:       key.Query,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("cache search snapshot: %w", err)
	}
	return nil
}

// InvalidateSearchSnapshots drops every stored search result. Called
// whenever new embeddings change what a semantic search would return.
func (c *Cache) InvalidateSearchSnapshots(ctx context.Context) {
	if !c.Available() {
		return
	}
	if _, err := c.store.DeleteSearchSnapshots(ctx); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate search snapshots")
	}
}

// EvictOlderThan removes records created more than maxAge ago, regardless
// of access. maxAge <= 0 means DefaultMaxAge.
func (c *Cache) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	if !c.Available() {
		return 0, nil
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	res, err := c.store.EvictOlderThan(ctx, c.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("evict cache: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"embeddings": res.Removed[storage.NamespaceEmbeddings],
		"projects":   res.Removed[storage.NamespaceProjects],
		"searches":   res.Removed[storage.NamespaceSearches],
		"max_age":    maxAge.String(),
	}).Info("cache evicted")
	return res.Total(), nil
}

// Clear removes every cached record
func (c *Cache) Clear(ctx context.Context) error {
	if !c.Available() {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Stats summarises what the cache holds
type Stats struct {
	Available        bool      `json:"available"`
	Embeddings       int       `json:"embeddings"`
	ProjectSnapshots int       `json:"projectSnapshots"`
	SearchSnapshots  int       `json:"searchSnapshots"`
	OldestRecord     time.Time `json:"oldestRecord,omitempty"`
	SizeMB           float64   `json:"sizeMB"`
	BuildMode        string    `json:"buildMode,omitempty"`
}

// Stats reports record counts; an unavailable cache reports zeroes
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	if !c.Available() {
		return &Stats{}, nil
	}
	status, err := c.store.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	return &Stats{
		Available:        true,
		Embeddings:       status.Embeddings,
		ProjectSnapshots: status.ProjectSnapshots,
		SearchSnapshots:  status.SearchSnapshots,
		OldestRecord:     status.OldestRecord,
		SizeMB:           status.SizeMB,
		BuildMode:        status.BuildMode,
	}, nil
}
