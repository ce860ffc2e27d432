package searcher

import (
	"math"
	"path"
	"strings"

	"github.com/dshills/contextrank/internal/graph"
	"github.com/dshills/contextrank/internal/tokenize"
	"github.com/dshills/contextrank/pkg/types"
)

// importantDirs are conventional folders that usually hold core code
var importantDirs = map[string]struct{}{
	"src": {}, "lib": {}, "app": {}, "core": {}, "internal": {}, "pkg": {},
	"api": {}, "services": {}, "controllers": {}, "models": {}, "handlers": {},
	"routes": {}, "components": {}, "domain": {},
}

// Relationships scores how strongly files are tied into the project and
// to a chosen entry point.
type Relationships struct {
	tables map[string]types.SymbolTable
	graph  *graph.Graph
	// moduleUsers maps a normalised imported module to the files importing it
	moduleUsers map[string]map[string]struct{}
}

// NewRelationships indexes files for relationship scoring
func NewRelationships(files []types.SourceFile, tables map[string]types.SymbolTable, g *graph.Graph) *Relationships {
	r := &Relationships{
		tables:      tables,
		graph:       g,
		moduleUsers: make(map[string]map[string]struct{}),
	}
	for _, f := range files {
		for _, mod := range r.modules(f.Path) {
			if r.moduleUsers[mod] == nil {
				r.moduleUsers[mod] = make(map[string]struct{})
			}
			r.moduleUsers[mod][f.Path] = struct{}{}
		}
	}
	return r
}

// modules returns the distinct imported modules of file, with relative
// modules made project-relative so equal targets compare equal.
func (r *Relationships) modules(file string) []string {
	table := r.tables[file]
	mods := table.ImportModules()
	for i, m := range mods {
		if strings.HasPrefix(m, "./") || strings.HasPrefix(m, "../") {
			mods[i] = path.Join(path.Dir(file), m)
		}
	}
	return mods
}

// Base combines five project-wide signals, capped at 1: how many files
// import this one (0.2 each, up to 0.6), functions sharing a name prefix
// (0.2), imports shared with other files (0.1 each, up to 0.4), living in a
// conventional source directory (0.15) and function count (0.05 each, up
// to 0.25).
func (r *Relationships) Base(file string) float64 {
	var score float64

	score += math.Min(0.6, 0.2*float64(len(r.graph.Importers(file))))

	table := r.tables[file]
	functions := table.FunctionNames()
	if sharedPrefix(functions) {
		score += 0.2
	}

	shared := 0
	for _, mod := range r.modules(file) {
		if len(r.moduleUsers[mod]) > 1 {
			shared++
		}
	}
	score += math.Min(0.4, 0.1*float64(shared))

	if inImportantDir(file) {
		score += 0.15
	}

	score += math.Min(0.25, 0.05*float64(len(functions)))

	return math.Min(1, score)
}

// Score returns the relationship score of file. Without an entry point it
// is the base score. With one it blends the entry-point affinity (direct
// import 0.8, shared function names 0.3 each, names the one imports from the
// other 0.4 each, every part capped at 1) with the base score using blend.
// The entry point itself scores 1.
func (r *Relationships) Score(file, entry string, blend float64) float64 {
	base := r.Base(file)
	if entry == "" {
		return base
	}
	if file == entry {
		return 1
	}

	var affinity float64
	if contains(r.graph.Imports(entry), file) || contains(r.graph.Imports(file), entry) {
		affinity += 0.8
	}

	entryTable, fileTable := r.tables[entry], r.tables[file]
	affinity += math.Min(1, 0.3*float64(overlap(entryTable.FunctionNames(), fileTable.FunctionNames())))

	names := overlap(importNames(entryTable), fileTable.ExportNames()) +
		overlap(importNames(fileTable), entryTable.ExportNames())
	affinity += math.Min(1, 0.4*float64(names))

	affinity = math.Min(1, affinity)
	return math.Min(1, blend*affinity+(1-blend)*base)
}

// sharedPrefix reports whether two functions start with the same word of at
// least three letters (getUser and getOrder, handleLogin and handleLogout).
func sharedPrefix(functions []string) bool {
	seen := make(map[string]struct{}, len(functions))
	for _, fn := range functions {
		words := tokenize.Words(fn)
		if len(words) < 2 || len(words[0]) < 3 {
			continue
		}
		if _, ok := seen[words[0]]; ok {
			return true
		}
		seen[words[0]] = struct{}{}
	}
	return false
}

func inImportantDir(file string) bool {
	segments := strings.Split(file, "/")
	for _, seg := range segments[:len(segments)-1] {
		if _, ok := importantDirs[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

func importNames(table types.SymbolTable) []string {
	names := make([]string, 0, len(table.Imports))
	for _, imp := range table.Imports {
		names = append(names, imp.Name)
	}
	return names
}

// overlap counts the distinct names present in both lists
func overlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	n := 0
	counted := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := set[s]; !ok {
			continue
		}
		if _, dup := counted[s]; dup {
			continue
		}
		counted[s] = struct{}{}
		n++
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
