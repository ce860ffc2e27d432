package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/internal/httpapi"
	"github.com/dshills/contextrank/internal/mcp"
	"github.com/dshills/contextrank/internal/storage"
	"github.com/dshills/contextrank/internal/watcher"
	"github.com/dshills/contextrank/pkg/types"
)

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "contextrank",
		Short: "Rank codebase files by relevance to a query",
		Long: `contextrank locates, ranks and explains which files in a codebase are
relevant to a free-text query. It combines symbol matching, embedding
similarity, the import graph and an optional generative role classifier.

Results are cached in a local SQLite database so unchanged files are
never re-analyzed or re-embedded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, default ./contextrank.yaml when present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.dbPath, "db", "", "Cache database path (overrides config)")
	flags.BoolVar(&opts.json, "json", false, "Print results as JSON")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bars")

	cmd.AddCommand(
		analyzeCmd(opts),
		embedCmd(opts),
		searchCmd(opts),
		triModelCmd(opts),
		keywordsCmd(opts),
		cacheCmd(opts),
		serveCmd(opts),
		httpCmd(opts),
		versionCmd(),
	)
	return cmd
}

// withApp builds the shared capabilities for one command run
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(a *app) error) error {
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func analyzeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <root>",
		Short: "Extract symbols, build the dependency graph and mine keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				root, files, err := a.load(args[0])
				if err != nil {
					return err
				}
				progress, done := progressFor(opts, cmd.ErrOrStderr())
				analysis, err := a.newEngine().AnalyzeProject(cmd.Context(), filepath.Base(root), files, progress)
				done()
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), analysis)
				}
				printAnalysis(cmd.OutOrStdout(), analysis)
				return nil
			})
		},
	}
}

func embedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <root>",
		Short: "Generate and cache embeddings for every file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				_, files, err := a.load(args[0])
				if err != nil {
					return err
				}
				progress, done := progressFor(opts, cmd.ErrOrStderr())
				stats, err := a.newEngine().GenerateEmbeddings(cmd.Context(), files, progress)
				done()
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				printEmbeddingStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func searchCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <root> <query...>",
		Short: "Rank files by structure and semantic relevance",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				_, files, err := a.load(args[0])
				if err != nil {
					return err
				}
				results, err := a.newEngine().HybridSearch(cmd.Context(), strings.Join(args[1:], " "), files)
				if err != nil {
					return err
				}
				return writeResults(cmd, opts, results, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default all, at most 20)")
	return cmd
}

func triModelCmd(opts *globalOptions) *cobra.Command {
	var (
		limit int
		entry string
	)

	cmd := &cobra.Command{
		Use:   "trimodel <root> <query...>",
		Short: "Rank files adding entry-point relationships and role classification",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				_, files, err := a.load(args[0])
				if err != nil {
					return err
				}
				results, err := a.newEngine().TriModelSearch(cmd.Context(), strings.Join(args[1:], " "), files, filepath.ToSlash(entry))
				if err != nil {
					return err
				}
				return writeResults(cmd, opts, results, limit)
			})
		},
	}
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "Project-relative path of the workflow entry point")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default all, at most 20)")
	return cmd
}

func keywordsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <root>",
		Short: "List the project's dominant business-domain keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				root, files, err := a.load(args[0])
				if err != nil {
					return err
				}
				analysis, err := a.newEngine().AnalyzeProject(cmd.Context(), filepath.Base(root), files, nil)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), analysis.Keywords)
				}
				printKeywords(cmd.OutOrStdout(), analysis.Keywords)
				return nil
			})
		},
	}
}

func cacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the analysis cache",
	}

	var maxAge time.Duration
	evict := &cobra.Command{
		Use:   "evict",
		Short: "Delete cached records older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				age := maxAge
				if age <= 0 {
					age = a.cfg.Cache.MaxAge
				}
				removed, err := a.newEngine().EvictCache(cmd.Context(), age)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"removed": removed, "maxAge": age.String()})
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records older than %s\n", removed, age)
				return nil
			})
		},
	}
	evict.Flags().DurationVar(&maxAge, "max-age", 0, "Age threshold (default from config, 720h)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.newEngine().ClearCache(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache record counts and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				status, err := a.newEngine().Status(cmd.Context())
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), status.Cache)
				}
				s := status.Cache
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (available: %v, %s build)\n", a.cfg.Storage.Path, s.Available, storage.BuildMode)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Embeddings: %d  Project snapshots: %d  Search snapshots: %d  Size: %.2f MB\n",
					s.Embeddings, s.ProjectSnapshots, s.SearchSnapshots, s.SizeMB)
				return nil
			})
		},
	}

	cmd.AddCommand(evict, clearCmd, stats)
	return cmd
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var watch []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the Model Context Protocol server on stdin/stdout. Logs go to stderr.

With --watch, file changes under the given project roots invalidate the
affected files so the next analysis or search picks them up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sessions := engine.NewSessions(a.engineOptions()...)
				server := mcp.NewServer(sessions, a.cache,
					mcp.WithSourceOptions(a.cfg.Source),
					mcp.WithLogger(a.logger),
				)

				// watchers stop when the server does
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				g, ctx := errgroup.WithContext(ctx)
				if err := startWatchers(ctx, g, a, sessions, watch); err != nil {
					return err
				}
				g.Go(func() error {
					defer cancel()
					return server.ServeIO(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
				})
				return ignoreCanceled(g.Wait())
			})
		},
	}
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "Project roots to watch for changes (repeatable)")
	return cmd
}

func httpCmd(opts *globalOptions) *cobra.Command {
	var (
		addr  string
		watch []string
	)

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				cfg := a.cfg.HTTP
				if addr != "" {
					cfg.Addr = addr
				}
				sessions := engine.NewSessions(a.engineOptions()...)
				server := httpapi.New(httpapi.Config{
					Addr:           cfg.Addr,
					AllowedOrigins: cfg.AllowedOrigins,
					ReadTimeout:    cfg.ReadTimeout,
					WriteTimeout:   cfg.WriteTimeout,
				}, sessions, a.cache,
					httpapi.WithMetrics(a.metrics),
					httpapi.WithSourceOptions(a.cfg.Source),
					httpapi.WithLogger(a.logger),
				)

				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				g, ctx := errgroup.WithContext(ctx)
				if err := startWatchers(ctx, g, a, sessions, watch); err != nil {
					return err
				}
				g.Go(func() error {
					defer cancel()
					return server.ListenAndServe(ctx)
				})
				return ignoreCanceled(g.Wait())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config, default 127.0.0.1:8420)")
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "Project roots to watch for changes (repeatable)")
	return cmd
}

// startWatchers invalidates changed files in the session of each root
func startWatchers(ctx context.Context, g *errgroup.Group, a *app, sessions *engine.Sessions, roots []string) error {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		w, err := watcher.New(watcher.Config{
			Root:   abs,
			Source: a.cfg.Source,
			Logger: a.logger.WithField("root", abs),
		})
		if err != nil {
			return err
		}

		eng := sessions.Get(abs)
		logger := a.logger.WithField("root", abs)
		g.Go(func() error {
			return w.Run(ctx, func(path string) {
				logger.WithField("path", path).Debug("file changed")
				eng.Invalidate(path)
			})
		})
		logger.Info("watching for changes")
	}
	return nil
}

func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "contextrank %s (build: %s)\n", version, buildTime)
			_, _ = fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			_, _ = fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}

// writeResults prints results truncated to limit when limit is positive
func writeResults(cmd *cobra.Command, opts *globalOptions, results []types.RankedResult, limit int) error {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if opts.json {
		return printJSON(cmd.OutOrStdout(), results)
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}
