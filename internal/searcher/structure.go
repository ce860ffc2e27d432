package searcher

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/contextrank/pkg/types"
)

// ASTMatch is a file's structural score and the evidence behind it
type ASTMatch struct {
	File          string
	Score         float64
	Matches       []types.Match
	TokensMatched int
}

// roleMultipliers scale scores by what a path suggests a file is. The
// first entry whose substring occurs in the lower-cased path applies.
var roleMultipliers = []struct {
	substrings []string
	multiplier float64
}{
	{[]string{"model"}, 1.2},
	{[]string{"controller", "service", "component"}, 1.1},
	{[]string{"job"}, 1.0},
	{[]string{"spec", "test"}, 0.8},
	{[]string{"migrate"}, 0.7},
	{[]string{"config"}, 0.6},
}

// RoleMultiplier returns the file-role weight for path
func RoleMultiplier(path string) float64 {
	lower := strings.ToLower(path)
	for _, role := range roleMultipliers {
		for _, sub := range role.substrings {
			if strings.Contains(lower, sub) {
				return role.multiplier
			}
		}
	}
	return 1.0
}

// Tokenize splits a query on whitespace, underscores and hyphens, lower-cases
// the pieces and drops those shorter than minLen. Duplicates are removed,
// first occurrence kept.
func Tokenize(query string, minLen int) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(f)
		if len([]rune(tok)) < minLen {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ScoreStructure scores every file by lexical overlap between the query
// tokens and the file's path, symbols and content. Files without evidence
// are left out; the rest are sorted by score, highest first, input order
// breaking ties.
func ScoreStructure(query string, files []types.SourceFile, tables map[string]types.SymbolTable, cfg Config) []ASTMatch {
	tokens := Tokenize(query, cfg.MinTokenLength)
	if len(tokens) == 0 {
		return nil
	}

	var results []ASTMatch
	for _, file := range files {
		if m, ok := scoreFile(tokens, file, tables[file.Path], cfg); ok {
			results = append(results, m)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func scoreFile(tokens []string, file types.SourceFile, table types.SymbolTable, cfg Config) (ASTMatch, bool) {
	path := strings.ToLower(file.Path)
	content := strings.ToLower(file.Content)

	var matches []types.Match
	var score float64
	matched := 0

	for _, tok := range tokens {
		before := len(matches)

		if strings.Contains(path, tok) {
			matches = append(matches, types.Match{Kind: types.MatchPath, Token: tok, Name: file.Path, Weight: cfg.PathWeight})
		}
		if s, ok := firstSymbol(table.Classes, tok); ok {
			matches = append(matches, types.Match{Kind: types.MatchClass, Token: tok, Name: s.Name, Line: s.StartLine, Weight: cfg.ClassWeight})
		}
		if s, ok := firstSymbol(table.Functions, tok); ok {
			matches = append(matches, types.Match{Kind: types.MatchFunction, Token: tok, Name: s.Name, Line: s.StartLine, Weight: cfg.FunctionWeight})
		}
		if s, ok := firstSymbol(table.Exports, tok); ok {
			matches = append(matches, types.Match{Kind: types.MatchExport, Token: tok, Name: s.Name, Line: s.StartLine, Weight: cfg.ExportWeight})
		}
		if s, ok := firstImport(table.Imports, tok); ok {
			matches = append(matches, types.Match{Kind: types.MatchImport, Token: tok, Name: s.Module, Line: s.StartLine, Weight: cfg.ImportWeight})
		}
		if n := strings.Count(content, tok); n > 0 {
			w := float64(n) * cfg.ContentWeight
			if w > cfg.ContentCap {
				w = cfg.ContentCap
			}
			matches = append(matches, types.Match{Kind: types.MatchContent, Token: tok, Weight: w})
		}

		if len(matches) > before {
			matched++
			for _, m := range matches[before:] {
				score += m.Weight
			}
		}
	}

	if matched == 0 || score <= 0 {
		return ASTMatch{}, false
	}

	if matched > 1 {
		score *= 1 + cfg.MultiKeywordBoost*float64(matched-1)
	}
	score *= RoleMultiplier(file.Path)

	return ASTMatch{File: file.Path, Score: score, Matches: matches, TokensMatched: matched}, true
}

func firstSymbol(symbols []types.Symbol, tok string) (types.Symbol, bool) {
	for _, s := range symbols {
		if strings.Contains(strings.ToLower(s.Name), tok) {
			return s, true
		}
	}
	return types.Symbol{}, false
}

// firstImport matches the imported module string or any bound name
func firstImport(imports []types.Symbol, tok string) (types.Symbol, bool) {
	for _, s := range imports {
		if strings.Contains(strings.ToLower(s.Module), tok) || strings.Contains(strings.ToLower(s.Name), tok) {
			return s, true
		}
	}
	return types.Symbol{}, false
}
