package storage

import (
	"context"
	"time"
)

// Namespace names the three independent record families in the store
type Namespace string

const (
	NamespaceEmbeddings Namespace = "file_embeddings"
	NamespaceProjects   Namespace = "project_snapshots"
	NamespaceSearches   Namespace = "search_snapshots"
)

// Namespaces lists every namespace in eviction order
var Namespaces = []Namespace{NamespaceEmbeddings, NamespaceProjects, NamespaceSearches}

// Storage defines the durable key-value store behind the analysis cache.
// Every record is advisory: callers treat any error as a miss.
type Storage interface {
	// File embedding operations
	UpsertFileEmbedding(ctx context.Context, embedding *FileEmbedding) error
	GetFileEmbedding(ctx context.Context, path string) (*FileEmbedding, error)
	DeleteFileEmbedding(ctx context.Context, path string) error
	ListFileEmbeddings(ctx context.Context) ([]*FileEmbedding, error)

	// Project snapshot operations
	UpsertProjectSnapshot(ctx context.Context, snapshot *ProjectSnapshot) error
	GetProjectSnapshot(ctx context.Context, projectHash string) (*ProjectSnapshot, error)

	// Search snapshot operations
	UpsertSearchSnapshot(ctx context.Context, snapshot *SearchSnapshot) error
	GetSearchSnapshot(ctx context.Context, id string) (*SearchSnapshot, error)
	DeleteSearchSnapshots(ctx context.Context) (int64, error)

	// Maintenance operations
	EvictOlderThan(ctx context.Context, cutoff time.Time) (*EvictionResult, error)
	Clear(ctx context.Context) error
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
}

// FileEmbedding is the persisted embedding of one file's content.
// ContentHash records the content the vector was computed from.
type FileEmbedding struct {
	Path        string
	ContentHash string
	Vector      []byte // Serialized float32 array
	Dimension   int
	Provider    string
	Model       string
	CreatedAt   time.Time
}

// ProjectSnapshot stores an encoded analysis summary keyed by project hash
type ProjectSnapshot struct {
	ProjectHash string
	Name        string
	Payload     []byte // JSON
	CreatedAt   time.Time
}

// SearchSnapshot stores encoded ranked results for one query
type SearchSnapshot struct {
	ID          string
	ProjectHash string
	Mode        string
	Query       string
	Payload     []byte // JSON
	CreatedAt   time.Time
}

// EvictionResult counts the records removed per namespace
type EvictionResult struct {
	Removed map[Namespace]int64
}

// Total returns the number of removed records across namespaces
func (r *EvictionResult) Total() int64 {
	var n int64
	for _, c := range r.Removed {
		n += c
	}
	return n
}

// Status contains record counts and database size
type Status struct {
	Embeddings       int
	ProjectSnapshots int
	SearchSnapshots  int
	OldestRecord     time.Time
	SizeMB           float64
	BuildMode        string
}
