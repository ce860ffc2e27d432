// Package keywords mines a project's domain vocabulary from its paths and
// declared symbols.
package keywords

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/contextrank/internal/tokenize"
	"github.com/dshills/contextrank/pkg/types"
)

const (
	// MaxKeywords bounds the extracted list
	MaxKeywords = 15
	// MinLength drops tokens shorter than this many characters
	MinLength = 3
)

// sourceWeights is the frequency a single occurrence adds, by source
var sourceWeights = map[types.KeywordSource]int{
	types.SourceDirectory: 1,
	types.SourceFilename:  2,
	types.SourceClass:     3,
	types.SourceFunction:  2,
	types.SourceImport:    1,
	types.SourceExport:    2,
}

// sourceOrder fixes the order Sources are reported in
var sourceOrder = []types.KeywordSource{
	types.SourceDirectory,
	types.SourceFilename,
	types.SourceClass,
	types.SourceFunction,
	types.SourceImport,
	types.SourceExport,
}

var stopWords = toSet(
	// English
	"the", "and", "for", "with", "from", "into", "that", "this", "are", "was", "not", "all", "any", "new", "old",
	// code vocabulary
	"get", "set", "add", "put", "has", "use", "run", "init", "main", "index", "app", "src", "lib", "libs",
	"util", "utils", "helper", "helpers", "common", "shared", "core", "base", "impl", "internal", "pkg", "cmd",
	"test", "tests", "spec", "specs", "mock", "mocks", "fixture", "fixtures", "dist", "build", "vendor",
	"node", "modules", "module", "package", "import", "export", "default", "const", "let", "var", "func",
	"function", "class", "type", "types", "interface", "struct", "return", "async", "await", "public", "private",
	"static", "void", "null", "true", "false", "string", "number", "int", "bool", "object", "array", "list",
	"map", "value", "values", "data", "item", "items", "handler", "handlers", "controller", "controllers",
	"service", "services", "model", "models", "view", "views", "component", "components", "config", "configs",
	"router", "routes", "route", "api", "http", "server", "client", "request", "response", "error", "errors",
	"create", "update", "delete", "remove", "find", "fetch", "load", "save", "handle", "process", "make",
	"build", "parse", "format", "render", "js", "ts", "jsx", "tsx", "go", "py",
)

// domainStems are the business-domain roots a keyword must start with
var domainStems = []string{
	"user", "account", "auth", "login", "logout", "session", "password", "profile", "member", "role",
	"permission", "customer", "order", "cart", "checkout", "payment", "invoice", "billing",
	"subscription", "refund", "price", "pricing", "product", "catalog", "inventory", "stock", "shipping",
	"shipment", "delivery", "address", "ticket", "booking", "reservation", "appointment", "event",
	"notification", "email", "message", "chat", "comment", "review", "rating", "post", "article", "blog",
	"report", "analytic", "dashboard", "employee", "staff", "team", "organization", "company", "tenant",
	"project", "task", "workflow", "document", "file", "upload", "media", "image", "video", "search",
	"transaction", "wallet", "balance", "loan", "policy", "claim", "patient", "doctor", "course", "student",
	"lesson", "exam", "supplier", "contract", "quote", "lead", "campaign", "coupon", "discount",
	"store", "shop", "merchant", "warehouse", "vehicle", "trip", "location", "schedule", "calendar",
}

var domainRe = regexp.MustCompile(`^(?:` + strings.Join(domainStems, "|") + `)[a-z]*$`)

// IsDomainTerm reports whether word passes the stop-word, length and
// business-domain filters
func IsDomainTerm(word string) bool {
	if len(word) < MinLength {
		return false
	}
	if _, stop := stopWords[word]; stop {
		return false
	}
	return domainRe.MatchString(word)
}

type tally struct {
	frequency int
	sources   map[types.KeywordSource]struct{}
	files     map[string]struct{}
}

// Extract aggregates domain keywords across files. Each occurrence adds
// its source's weight to the keyword's frequency. Confidence grows with
// frequency, distinct source kinds and distinct files and is capped at 1.
// The result holds at most MaxKeywords entries sorted by
// confidence×frequency, highest first.
func Extract(files []types.SourceFile, tables map[string]types.SymbolTable) []types.ExtractedKeyword {
	tallies := make(map[string]*tally)
	record := func(text string, source types.KeywordSource, file string) {
		for _, w := range tokenize.Words(text) {
			if !IsDomainTerm(w) {
				continue
			}
			t, ok := tallies[w]
			if !ok {
				t = &tally{sources: map[types.KeywordSource]struct{}{}, files: map[string]struct{}{}}
				tallies[w] = t
			}
			t.frequency += sourceWeights[source]
			t.sources[source] = struct{}{}
			t.files[file] = struct{}{}
		}
	}

	for _, f := range files {
		if dir := f.Dir(); dir != "" {
			for _, seg := range strings.Split(dir, "/") {
				record(seg, types.SourceDirectory, f.Path)
			}
		}
		record(tokenize.BaseName(f.Path), types.SourceFilename, f.Path)

		table := tables[f.Path]
		for _, s := range table.Classes {
			record(s.Name, types.SourceClass, f.Path)
		}
		for _, s := range table.Functions {
			record(s.Name, types.SourceFunction, f.Path)
		}
		for _, s := range table.Imports {
			record(s.Module, types.SourceImport, f.Path)
		}
		for _, s := range table.Exports {
			record(s.Name, types.SourceExport, f.Path)
		}
	}

	out := make([]types.ExtractedKeyword, 0, len(tallies))
	for word, t := range tallies {
		confidence := math.Min(
			float64(t.frequency)*0.1+float64(len(t.sources))*0.2+float64(len(t.files))*0.05,
			1.0,
		)

		sources := make([]types.KeywordSource, 0, len(t.sources))
		for _, s := range sourceOrder {
			if _, ok := t.sources[s]; ok {
				sources = append(sources, s)
			}
		}
		related := make([]string, 0, len(t.files))
		for f := range t.files {
			related = append(related, f)
		}
		sort.Strings(related)

		out = append(out, types.ExtractedKeyword{
			Keyword:      word,
			Frequency:    t.frequency,
			Sources:      sources,
			Confidence:   confidence,
			RelatedFiles: related,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ri := out[i].Confidence * float64(out[i].Frequency)
		rj := out[j].Confidence * float64(out[j].Frequency)
		if ri != rj {
			return ri > rj
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > MaxKeywords {
		out = out[:MaxKeywords]
	}
	return out
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
