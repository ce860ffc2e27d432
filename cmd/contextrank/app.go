package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/config"
	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/logging"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/internal/source"
	"github.com/dshills/contextrank/pkg/types"
)

// globalOptions are the persistent root flags
type globalOptions struct {
	configPath string
	logLevel   string
	dbPath     string
	json       bool
	noProgress bool
}

// app holds the capabilities shared by every command
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	cache     *cache.Cache
	metrics   *metrics.Collector
	embedder  embedder.Embedder
	generator generator.Generator
	stderr    io.Writer
}

func newApp(opts *globalOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.NewLoader(opts.configPath).Load()
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.dbPath != "" {
		cfg.Storage.Path = opts.dbPath
	}

	logger, err := logging.NewWithOutput(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			logger.WithError(err).Warn("cannot create cache directory")
		}
	}

	m := metrics.New()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		cache:   cache.Open(cfg.Storage.Path, cache.WithLogger(logger), cache.WithMetrics(m)),
		stderr:  stderr,
	}

	emb, err := embedder.New(cfg.Embedding)
	switch {
	case errors.Is(err, embedder.ErrNoProviderEnabled):
		logger.WithError(err).Info("embeddings disabled, searches use the structure signal only")
	case err != nil:
		_ = a.cache.Close()
		return nil, fmt.Errorf("embedding provider: %w", err)
	default:
		a.embedder = emb
	}

	gen, err := generator.New(cfg.Generator)
	switch {
	case errors.Is(err, generator.ErrNoGenerator):
		logger.Debug("no generative model configured, tri-model classification disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("generator: %w", err)
	default:
		a.generator = gen
	}

	return a, nil
}

func (a *app) engineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithCache(a.cache),
		engine.WithScoring(a.cfg.Scoring),
		engine.WithLogger(a.logger),
		engine.WithMetrics(a.metrics),
		engine.WithWorkers(a.cfg.Workers),
	}
	if a.embedder != nil {
		opts = append(opts, engine.WithEmbedder(a.embedder))
	}
	if a.generator != nil {
		opts = append(opts, engine.WithGenerator(a.generator))
	}
	return opts
}

func (a *app) newEngine() *engine.Engine {
	return engine.New(a.engineOptions()...)
}

// load reads the project under root with the configured source filters
func (a *app) load(root string) (string, []types.SourceFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	files, err := source.Load(abs, a.cfg.Source)
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no source files under %s", abs)
	}
	a.logger.WithFields(logrus.Fields{"path": abs, "files": len(files)}).Debug("project loaded")
	return abs, files, nil
}

func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.WithError(err).Warn("closing cache")
	}
}
