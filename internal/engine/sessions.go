package engine

import (
	"path/filepath"
	"sort"
	"sync"
)

// Sessions keeps one engine per project root. Every engine is built with
// the same options, so capabilities such as the cache and the providers
// are shared while symbol state stays per project.
type Sessions struct {
	mu      sync.Mutex
	opts    []Option
	engines map[string]*Engine
}

// NewSessions creates an empty session set
func NewSessions(opts ...Option) *Sessions {
	return &Sessions{opts: opts, engines: make(map[string]*Engine)}
}

// Get returns the engine for root, creating it on first use
func (s *Sessions) Get(root string) *Engine {
	root = filepath.Clean(root)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[root]; ok {
		return e
	}
	e := New(s.opts...)
	s.engines[root] = e
	return e
}

// Remove drops the engine for root
func (s *Sessions) Remove(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, filepath.Clean(root))
}

// Roots lists the project roots with a live engine, sorted
func (s *Sessions) Roots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := make([]string, 0, len(s.engines))
	for r := range s.engines {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}
