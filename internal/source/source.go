// Package source loads a project's text files from disk as SourceFiles.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dshills/contextrank/pkg/types"
)

// DefaultMaxFileSize skips files larger than 1 MiB
const DefaultMaxFileSize = 1 << 20

// ErrNotDirectory is returned when the root is not a directory
var ErrNotDirectory = errors.New("not a directory")

// Options controls which files Load returns
type Options struct {
	// Include keeps only paths matching one of these doublestar patterns
	// (relative, slash-separated). Empty keeps everything.
	Include []string `yaml:"include"`
	// Exclude drops paths matching any of these patterns
	Exclude []string `yaml:"exclude"`
	// Extensions lists accepted file extensions with the dot. Empty means
	// DefaultExtensions.
	Extensions       []string `yaml:"extensions"`
	MaxFileSize      int64    `yaml:"max_file_size"`
	IncludeHidden    bool     `yaml:"include_hidden"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
}

// DefaultExtensions are the source extensions loaded by default
var DefaultExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".vue", ".svelte",
	".py", ".rb", ".go", ".rs", ".java", ".kt", ".scala", ".cs",
	".c", ".h", ".cc", ".cpp", ".hpp", ".m", ".swift", ".php",
	".ex", ".exs", ".erl", ".clj", ".lua", ".pl", ".sh", ".sql",
}

// DefaultOptions returns the default loading options
func DefaultOptions() Options {
	return Options{
		MaxFileSize:      DefaultMaxFileSize,
		RespectGitignore: true,
	}
}

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	"vendor":           {},
	"bower_components": {},
	"__pycache__":      {},
	".git":             {},
	".hg":              {},
	".svn":             {},
	"venv":             {},
	".venv":            {},
	"dist":             {},
	"build":            {},
	"target":           {},
	"coverage":         {},
	".next":            {},
	".nuxt":            {},
	".tox":             {},
	".mypy_cache":      {},
	".pytest_cache":    {},
}

// SkipDir reports whether a directory with this base name is never walked
func SkipDir(name string, includeHidden bool) bool {
	if _, skip := skipDirs[name]; skip {
		return true
	}
	return !includeHidden && strings.HasPrefix(name, ".") && name != "."
}

// Load walks root and returns every accepted text file, sorted by path.
// Paths are relative to root and slash-separated. Unreadable files are
// skipped.
func Load(root string, opts Options) ([]types.SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load %s: %w", root, ErrNotDirectory)
	}

	m, err := newMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	var files []types.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if SkipDir(d.Name(), opts.IncludeHidden) || m.ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !m.accepts(rel) {
			return nil
		}

		content, ok := m.read(path, d)
		if !ok {
			return nil
		}
		files = append(files, types.SourceFile{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Accepts reports whether a root-relative path passes the options'
// hidden, extension and glob filters. .gitignore is not consulted.
func Accepts(rel string, opts Options) bool {
	m := &matcher{opts: opts, extensions: extensionSet(opts)}
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if seg != "." && SkipDir(seg, opts.IncludeHidden) {
			return false
		}
	}
	return m.accepts(filepath.ToSlash(rel))
}

type matcher struct {
	opts       Options
	extensions map[string]struct{}
	gitignore  *ignore.GitIgnore
}

func newMatcher(root string, opts Options) (*matcher, error) {
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	m := &matcher{opts: opts, extensions: extensionSet(opts)}
	if opts.RespectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			m.gitignore = gi
		}
	}
	return m, nil
}

func extensionSet(opts Options) map[string]struct{} {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return set
}

func (m *matcher) ignored(rel string) bool {
	return m.gitignore != nil && m.gitignore.MatchesPath(rel)
}

func (m *matcher) accepts(rel string) bool {
	name := rel[strings.LastIndex(rel, "/")+1:]
	if !m.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if _, ok := m.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return false
	}
	if m.ignored(rel) {
		return false
	}
	for _, p := range m.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(m.opts.Include) == 0 {
		return true
	}
	for _, p := range m.opts.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (m *matcher) read(path string, d fs.DirEntry) (string, bool) {
	info, err := d.Info()
	if err != nil {
		return "", false
	}
	limit := m.opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if info.Size() > limit {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil || IsBinary(data) {
		return "", false
	}
	return string(data), true
}

// IsBinary reports whether data looks like a binary file: it contains a
// NUL byte in the first 8 KiB or is not valid UTF-8 there.
func IsBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	if utf8.Valid(head) {
		return false
	}
	if len(data) > len(head) {
		// a multi-byte rune may straddle the cut
		for i := 1; i < utf8.UTFMax; i++ {
			if utf8.Valid(head[:len(head)-i]) {
				return false
			}
		}
	}
	return true
}
