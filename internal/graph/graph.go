// Package graph resolves import statements into file-to-file dependency
// edges.
//
// Resolution is intra-project only. A relative module ("./x", "../x") is
// joined with the importing file's directory; any other module is treated
// as project-relative. The literal path is tried first, then the suffix
// variants in resolveSuffixes; the first existing file wins. Modules that
// resolve to nothing (packages, stdlib, node_modules) are dropped.
package graph

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/contextrank/pkg/types"
)

const (
	// ImportConfidence is assigned to every resolved import edge
	ImportConfidence = 0.9
	// CallConfidence is assigned to call edges inferred from name( usage
	CallConfidence = 0.7
)

// resolveSuffixes are tried in order after the literal module path
var resolveSuffixes = []string{".js", ".ts", "/index.js", "/index.ts"}

// Graph holds the dependency edges of one analysis run
type Graph struct {
	// Edges maps a file to its outgoing edges, sorted by target then line
	Edges map[string][]types.DependencyEdge

	importers map[string][]string
}

// Build resolves every import in tables against the set of files. tables is
// keyed by file path; files without a table contribute no edges.
func Build(files []types.SourceFile, tables map[string]types.SymbolTable) *Graph {
	known := make(map[string]struct{}, len(files))
	content := make(map[string]string, len(files))
	for _, f := range files {
		known[f.Path] = struct{}{}
		content[f.Path] = f.Content
	}

	g := &Graph{
		Edges:     make(map[string][]types.DependencyEdge),
		importers: make(map[string][]string),
	}

	// iterate in sorted order for determinism
	paths := make([]string, 0, len(files))
	for p := range known {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, from := range paths {
		table, ok := tables[from]
		if !ok {
			continue
		}

		type target struct {
			to   string
			line int
		}
		var targets []target
		seen := make(map[string]struct{})
		importLines := make(map[int]struct{})

		for _, imp := range table.Imports {
			importLines[imp.StartLine] = struct{}{}
			to, ok := resolve(from, imp.Module, known)
			if !ok || to == from {
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			targets = append(targets, target{to: to, line: imp.StartLine})
		}

		var edges []types.DependencyEdge
		lines := strings.Split(content[from], "\n")
		for _, t := range targets {
			edges = append(edges, types.DependencyEdge{
				From:       from,
				To:         t.to,
				Type:       types.EdgeImport,
				Line:       t.line,
				Confidence: ImportConfidence,
			})
			g.importers[t.to] = append(g.importers[t.to], from)

			callee := tables[t.to]
			for _, name := range callee.FunctionNames() {
				if line := firstCall(lines, name, importLines); line > 0 {
					edges = append(edges, types.DependencyEdge{
						From:       from,
						To:         t.to,
						Type:       types.EdgeCall,
						Line:       line,
						Confidence: CallConfidence,
					})
				}
			}
		}

		if len(edges) == 0 {
			continue
		}
		sortEdges(edges)
		g.Edges[from] = edges
	}

	for to := range g.importers {
		sort.Strings(g.importers[to])
	}
	return g
}

// Resolve maps an imported module to a project file, trying the literal
// path and then each suffix variant.
func Resolve(from, module string, files []types.SourceFile) (string, bool) {
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f.Path] = struct{}{}
	}
	return resolve(from, module, known)
}

func resolve(from, module string, known map[string]struct{}) (string, bool) {
	if module == "" {
		return "", false
	}

	var base string
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		base = path.Join(path.Dir(from), module)
	} else {
		base = path.Clean(strings.TrimPrefix(module, "/"))
	}
	if base == "." || strings.HasPrefix(base, "../") {
		return "", false
	}

	if _, ok := known[base]; ok {
		return base, true
	}
	for _, suffix := range resolveSuffixes {
		if _, ok := known[base+suffix]; ok {
			return base + suffix, true
		}
	}
	return "", false
}

// firstCall returns the 1-based line of the first "name(" invocation that is
// not on an import line, or 0.
func firstCall(lines []string, name string, skip map[int]struct{}) int {
	re := regexp.MustCompile(`(?:^|[^\w$])` + regexp.QuoteMeta(name) + `\s*\(`)
	for i, line := range lines {
		if _, ok := skip[i+1]; ok {
			continue
		}
		if re.MatchString(line) {
			return i + 1
		}
	}
	return 0
}

func sortEdges(edges []types.DependencyEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		if edges[i].Type != edges[j].Type {
			return edges[i].Type == types.EdgeImport
		}
		return edges[i].Line < edges[j].Line
	})
}

// Dependencies returns the outgoing edges of path
func (g *Graph) Dependencies(path string) []types.DependencyEdge {
	if g == nil {
		return nil
	}
	return g.Edges[path]
}

// Imports returns the distinct files path imports, sorted
func (g *Graph) Imports(path string) []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, e := range g.Edges[path] {
		if e.Type == types.EdgeImport {
			out = append(out, e.To)
		}
	}
	return out
}

// Importers returns the files that import path, sorted
func (g *Graph) Importers(path string) []string {
	if g == nil {
		return nil
	}
	return g.importers[path]
}

// EdgeCount returns the total number of edges of both types
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, edges := range g.Edges {
		n += len(edges)
	}
	return n
}
