// Package watcher reports changed source files under a project root.
package watcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/source"
)

// DefaultDebounce is how long changes are collected before being reported
const DefaultDebounce = 200 * time.Millisecond

// Config configures a Watcher
type Config struct {
	Root     string
	Source   source.Options
	Debounce time.Duration
	Logger   logrus.FieldLogger
}

// Watcher watches a project tree and calls OnChange with the root-relative
// slash-separated path of every changed, created or removed source file.
type Watcher struct {
	root     string
	opts     source.Options
	debounce time.Duration
	logger   logrus.FieldLogger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a watcher with watches on every walkable directory under root
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", cfg.Root, err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:     root,
		opts:     cfg.Source,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		pending:  make(map[string]struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced changes to onChange until ctx is cancelled, then
// closes the watcher. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer func() { _ = w.fsw.Close() }()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watcher error")

		case <-ticker.C:
			for _, path := range w.flush() {
				onChange(path)
			}
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && source.SkipDir(d.Name(), w.opts.IncludeHidden) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.WithError(err).WithField("path", path).Warn("failed to watch directory")
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !source.SkipDir(filepath.Base(event.Name), w.opts.IncludeHidden) {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.WithError(err).WithField("path", event.Name).Warn("failed to watch new directory")
				}
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !source.Accepts(rel, w.opts) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()
	w.logger.WithFields(logrus.Fields{"path": rel, "op": event.Op.String()}).Debug("file change detected")
}

// flush returns and clears the pending paths
func (w *Watcher) flush() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	return paths
}
