package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/contextrank/pkg/types"
)

// dedupeWindow is the line distance within which a repeated function name
// is treated as the same declaration matched twice.
const dedupeWindow = 2

var (
	// imports
	esImportFromRe   = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(.+?)\s+from\s+['"]([^'"]+)['"]`)
	esImportBareRe   = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	esImportEqualsRe = regexp.MustCompile(`^\s*import\s+([A-Za-z_$][\w$]*)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	requireAssignRe  = regexp.MustCompile(`\b(?:const|let|var)\s+(.+?)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	requireBareRe    = regexp.MustCompile(`^\s*require(?:_relative)?\s*\(?\s*['"]([^'"]+)['"]`)
	pyFromRe         = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+\(?([^)#]+)\)?`)
	pyImportRe       = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*)\s*$`)
	javaImportRe     = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;?\s*$`)
	goImportRe       = regexp.MustCompile(`^\s*import\s+(?:([\w.]+)\s+)?"([^"]+)"`)
	goImportBlockRe  = regexp.MustCompile(`^\s*import\s*\(\s*$`)
	goImportSpecRe   = regexp.MustCompile(`^\s*(?:([\w.]+)\s+)?"([^"]+)"`)
	cIncludeRe       = regexp.MustCompile(`^\s*#\s*include\s*[<"]([^>"]+)[>"]`)
	csUsingRe        = regexp.MustCompile(`^\s*using\s+(?:static\s+)?(?:\w+\s*=\s*)?([\w.]+)\s*;`)
	rustUseRe        = regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?use\s+([\w:]+?)(?:::\{([^}]*)\})?\s*;`)

	// exports
	esExportDeclRe    = regexp.MustCompile(`^\s*export\s+(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?(?:async\s+)?(?:function\*?|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][\w$]*)`)
	esExportListRe    = regexp.MustCompile(`^\s*export\s*(?:type\s*)?\{([^}]*)\}`)
	esExportDefaultRe = regexp.MustCompile(`^\s*export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)
	cjsExportObjRe    = regexp.MustCompile(`^\s*module\.exports\s*=\s*\{([^}]*)\}?`)
	cjsExportNameRe   = regexp.MustCompile(`^\s*module\.exports\s*=\s*([A-Za-z_$][\w$]*)\s*;?\s*$`)
	cjsExportPropRe   = regexp.MustCompile(`^\s*(?:module\.)?exports\.([A-Za-z_$][\w$]*)\s*=`)
	pyAllRe           = regexp.MustCompile(`^\s*__all__\s*=\s*[\[(]([^\])]*)[\])]`)
	rustPubRe         = regexp.MustCompile(`^\s*pub(?:\([^)]*\))?\s+(?:async\s+)?(?:unsafe\s+)?(?:fn|struct|enum|trait|type|const|static|mod)\s+([A-Za-z_]\w*)`)
	goExportFuncRe    = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Z]\w*)`)
	goExportTypeRe    = regexp.MustCompile(`^type\s+([A-Z]\w*)`)

	// classes
	classRe  = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:(?:public|private|protected|internal|abstract|final|sealed|static|partial|data|open|pub(?:\([^)]*\))?)\s+)*(?:class|interface|struct|trait|enum|module|record)\s+([A-Za-z_$][\w$]*(?:::[A-Za-z_$][\w$]*)*)`)
	goTypeRe = regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(?:struct|interface)\b`)

	// functions, tried in order
	keywordFuncRe  = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:(?:public|private|protected|internal|static|async|override|open|inline|suspend|extern|unsafe|const|pub(?:\([^)]*\))?)\s+)*(?:function\*?|def|fun|fn|func|sub|proc)\s+(?:\([^)]*\)\s*)?(?:self\.)?([A-Za-z_$][\w$]*[?!]?)`)
	assignedFuncRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`)
	propFuncRe     = regexp.MustCompile(`^\s*(?:static\s+)?([A-Za-z_$][\w$]*)\s*[:=]\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`)
	signatureRe    = regexp.MustCompile(`^\s*(?:[\w$<>\[\],.*&?:]+\s+)*([A-Za-z_$~][\w$]*)\s*\([^;{}()]*\)\s*[\w\s:<>\[\],.|?&*]*\{[^}]*\}?\s*$`)

	// same signature with the opening brace on the following line
	signatureOpenRe = regexp.MustCompile(`^\s*(?:[\w$<>\[\],.*&?:]+\s+)*([A-Za-z_$~][\w$]*)\s*\([^;{}()]*\)\s*[\w\s:<>\[\],.|?&*]*$`)
)

// nonFunctionNames are identifiers that precede "(" without declaring anything.
var nonFunctionNames = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "return": {},
	"else": {}, "do": {}, "try": {}, "with": {}, "elif": {}, "foreach": {},
	"until": {}, "unless": {}, "case": {}, "new": {}, "typeof": {}, "sizeof": {},
	"function": {}, "await": {}, "yield": {}, "throw": {}, "delete": {},
	"when": {}, "match": {}, "select": {}, "lock": {}, "using": {}, "fixed": {},
	"synchronized": {}, "super": {}, "this": {}, "defer": {}, "go": {},
	"class": {}, "struct": {}, "interface": {}, "enum": {},
	"func": {}, "fn": {}, "fun": {}, "def": {}, "sub": {}, "proc": {},
}

// Parser extracts symbol tables. The zero value is not usable, use New.
type Parser struct {
	dedupeWindow int
}

// New creates a parser with default settings.
func New() *Parser {
	return &Parser{dedupeWindow: dedupeWindow}
}

// ErrStageFailed is reported by ExtractChecked for each extraction stage
// that panicked
var ErrStageFailed = errors.New("extraction stage failed")

// Extract returns the symbol table of a single file using a default parser.
func Extract(content, path string) types.SymbolTable {
	return New().Extract(content, path)
}

// ExtractChecked is Extract that also reports which stages failed.
func ExtractChecked(content, path string) (types.SymbolTable, error) {
	return New().ExtractChecked(content, path)
}

// Extract scans content line by line and returns the symbols it finds.
// Each stage is isolated: a failure in one stage contributes no symbols
// but never prevents the others from running.
func (p *Parser) Extract(content, path string) types.SymbolTable {
	table, _ := p.ExtractChecked(content, path)
	return table
}

// ExtractChecked returns the same table as Extract. The error joins one
// ErrStageFailed per failed stage; the table still holds the symbols of
// the stages that succeeded.
func (p *Parser) ExtractChecked(content, path string) (types.SymbolTable, error) {
	var table types.SymbolTable
	if content == "" {
		return table, nil
	}
	lines := splitLines(content)
	isGo := strings.EqualFold(filepath.Ext(path), ".go")

	var errs [4]error
	table.Imports, errs[0] = safely("imports", func() []types.Symbol { return extractImports(lines) })
	table.Exports, errs[1] = safely("exports", func() []types.Symbol { return extractExports(lines, isGo) })
	table.Classes, errs[2] = safely("classes", func() []types.Symbol { return extractClasses(lines) })
	table.Functions, errs[3] = safely("functions", func() []types.Symbol { return p.extractFunctions(lines) })
	return table, errors.Join(errs[:]...)
}

// safely runs one extraction stage, turning a panic into ErrStageFailed.
func safely(name string, stage func() []types.Symbol) (out []types.Symbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: %v", ErrStageFailed, name, r)
		}
	}()
	return stage(), nil
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func extractImports(lines []string) []types.Symbol {
	var out []types.Symbol
	inGoBlock := false

	add := func(line int, module string, names []string) {
		module = strings.TrimSpace(module)
		if module == "" {
			return
		}
		if len(names) == 0 {
			names = []string{moduleBase(module)}
		}
		for _, n := range names {
			out = append(out, types.Symbol{Name: n, StartLine: line, EndLine: line, Module: module})
		}
	}

	for i, line := range lines {
		n := i + 1
		if inGoBlock {
			if strings.HasPrefix(strings.TrimSpace(line), ")") {
				inGoBlock = false
				continue
			}
			if m := goImportSpecRe.FindStringSubmatch(line); m != nil {
				add(n, m[2], aliasNames(m[1]))
			}
			continue
		}
		if goImportBlockRe.MatchString(line) {
			inGoBlock = true
			continue
		}

		switch {
		case esImportEqualsRe.MatchString(line):
			m := esImportEqualsRe.FindStringSubmatch(line)
			add(n, m[2], []string{m[1]})
		case esImportFromRe.MatchString(line):
			m := esImportFromRe.FindStringSubmatch(line)
			add(n, m[2], bindingNames(m[1]))
		case esImportBareRe.MatchString(line):
			add(n, esImportBareRe.FindStringSubmatch(line)[1], nil)
		case goImportRe.MatchString(line):
			m := goImportRe.FindStringSubmatch(line)
			add(n, m[2], aliasNames(m[1]))
		case pyFromRe.MatchString(line):
			m := pyFromRe.FindStringSubmatch(line)
			add(n, m[1], bindingNames(m[2]))
		case javaImportRe.MatchString(line) && strings.Contains(line, ";"):
			add(n, javaImportRe.FindStringSubmatch(line)[1], nil)
		case pyImportRe.MatchString(line):
			for _, part := range strings.Split(pyImportRe.FindStringSubmatch(line)[1], ",") {
				fields := strings.Fields(part)
				if len(fields) == 0 {
					continue
				}
				var names []string
				if len(fields) == 3 && fields[1] == "as" {
					names = []string{fields[2]}
				}
				add(n, fields[0], names)
			}
		case javaImportRe.MatchString(line):
			add(n, javaImportRe.FindStringSubmatch(line)[1], nil)
		case requireAssignRe.MatchString(line):
			m := requireAssignRe.FindStringSubmatch(line)
			add(n, m[2], bindingNames(m[1]))
		case requireBareRe.MatchString(line):
			add(n, requireBareRe.FindStringSubmatch(line)[1], nil)
		case cIncludeRe.MatchString(line):
			add(n, cIncludeRe.FindStringSubmatch(line)[1], nil)
		case csUsingRe.MatchString(line):
			add(n, csUsingRe.FindStringSubmatch(line)[1], nil)
		case rustUseRe.MatchString(line):
			m := rustUseRe.FindStringSubmatch(line)
			add(n, m[1], splitNames(m[2]))
		}
	}
	return out
}

// bindingNames turns an import clause such as "React, { useState as s }"
// or "* as api" into the local names it binds.
func bindingNames(clause string) []string {
	clause = strings.NewReplacer("{", ",", "}", ",", "(", ",", ")", ",").Replace(clause)
	var names []string
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if name == "*" || name == "type" {
			continue
		}
		if isIdentifier(name) {
			names = append(names, name)
		}
	}
	return names
}

func aliasNames(alias string) []string {
	if alias == "" || alias == "_" || alias == "." {
		return nil
	}
	return []string{alias}
}

func splitNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := strings.Trim(fields[len(fields)-1], `'"`)
		if i := strings.Index(name, ":"); i > 0 {
			name = name[:i]
		}
		if isIdentifier(name) && name != "self" {
			names = append(names, name)
		}
	}
	return names
}

// moduleBase derives a binding name from a module string:
// "./services/userService" -> "userService", "java.util.List" -> "List".
func moduleBase(module string) string {
	m := strings.TrimSuffix(module, "/")
	for _, sep := range []string{"/", "::", "\\"} {
		if i := strings.LastIndex(m, sep); i >= 0 {
			m = m[i+len(sep):]
		}
	}
	if !strings.Contains(module, "/") && strings.Count(m, ".") > 0 && !strings.HasPrefix(m, ".") {
		if ext := filepath.Ext(m); ext == ".h" || ext == ".hpp" || ext == ".js" || ext == ".ts" {
			m = strings.TrimSuffix(m, ext)
		} else {
			m = m[strings.LastIndex(m, ".")+1:]
		}
	} else {
		m = strings.TrimSuffix(m, filepath.Ext(m))
	}
	if m == "" || m == "*" {
		return module
	}
	return m
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func extractExports(lines []string, isGo bool) []types.Symbol {
	var out []types.Symbol
	add := func(line int, names ...string) {
		for _, name := range names {
			out = append(out, types.Symbol{Name: name, StartLine: line, EndLine: line})
		}
	}

	for i, line := range lines {
		n := i + 1
		switch {
		case esExportDeclRe.MatchString(line):
			add(n, esExportDeclRe.FindStringSubmatch(line)[1])
		case esExportListRe.MatchString(line):
			add(n, exportedNames(esExportListRe.FindStringSubmatch(line)[1])...)
		case esExportDefaultRe.MatchString(line):
			add(n, esExportDefaultRe.FindStringSubmatch(line)[1])
		case cjsExportObjRe.MatchString(line):
			add(n, exportedNames(cjsExportObjRe.FindStringSubmatch(line)[1])...)
		case cjsExportNameRe.MatchString(line):
			add(n, cjsExportNameRe.FindStringSubmatch(line)[1])
		case cjsExportPropRe.MatchString(line):
			add(n, cjsExportPropRe.FindStringSubmatch(line)[1])
		case pyAllRe.MatchString(line):
			add(n, splitNames(pyAllRe.FindStringSubmatch(line)[1])...)
		case rustPubRe.MatchString(line):
			add(n, rustPubRe.FindStringSubmatch(line)[1])
		case isGo && goExportFuncRe.MatchString(line):
			add(n, goExportFuncRe.FindStringSubmatch(line)[1])
		case isGo && goExportTypeRe.MatchString(line):
			add(n, goExportTypeRe.FindStringSubmatch(line)[1])
		}
	}
	return out
}

// exportedNames handles "a, b as c" and object shorthand "a, b: impl".
func exportedNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if i := strings.Index(part, ":"); i > 0 {
			part = strings.TrimSpace(part[:i])
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if isIdentifier(name) && name != "default" {
			names = append(names, name)
		}
	}
	return names
}

func extractClasses(lines []string) []types.Symbol {
	var out []types.Symbol
	for i, line := range lines {
		var name string
		if m := goTypeRe.FindStringSubmatch(line); m != nil {
			name = m[1]
		} else if m := classRe.FindStringSubmatch(line); m != nil {
			name = m[1]
		}
		if name == "" {
			continue
		}
		if _, reserved := nonFunctionNames[name]; reserved {
			continue
		}
		out = append(out, types.Symbol{Name: name, StartLine: i + 1, EndLine: blockEnd(lines, i) + 1})
	}
	return out
}

func (p *Parser) extractFunctions(lines []string) []types.Symbol {
	var out []types.Symbol
	for i, line := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		name := functionName(line, next)
		if name == "" {
			continue
		}
		if p.isDuplicate(out, name, i+1) {
			continue
		}
		out = append(out, types.Symbol{Name: name, StartLine: i + 1, EndLine: blockEnd(lines, i) + 1})
	}
	return out
}

// functionName applies the function patterns in priority order and returns
// the first acceptable declared name, or "". The following line is
// consulted for signatures whose brace opens on the next line.
func functionName(line, next string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "*") {
		return ""
	}
	patterns := []*regexp.Regexp{keywordFuncRe, assignedFuncRe, propFuncRe, signatureRe}
	if strings.HasPrefix(strings.TrimSpace(next), "{") {
		patterns = append(patterns, signatureOpenRe)
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, reserved := nonFunctionNames[m[1]]; reserved {
			continue
		}
		return m[1]
	}
	return ""
}

func (p *Parser) isDuplicate(found []types.Symbol, name string, line int) bool {
	for j := len(found) - 1; j >= 0; j-- {
		if line-found[j].StartLine > p.dedupeWindow {
			break
		}
		if found[j].Name == name {
			return true
		}
	}
	return false
}

// blockEnd returns the 0-based index of the line closing the block opened
// at or directly after line start. Without an opening brace the block is
// the declaration line alone.
func blockEnd(lines []string, start int) int {
	open := start
	if !strings.Contains(lines[start], "{") {
		if start+1 >= len(lines) || !strings.HasPrefix(strings.TrimSpace(lines[start+1]), "{") {
			return start
		}
		open = start + 1
	}

	depth := 0
	seen := false
	for i := open; i < len(lines); i++ {
		line := lines[i]
		if i == start {
			line = line[strings.Index(line, "{"):]
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
				seen = true
			case '}':
				depth--
			}
			if seen && depth == 0 {
				return i
			}
		}
	}
	return len(lines) - 1
}
