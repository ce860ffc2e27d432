package types

// SymbolKind identifies the section of a symbol table a symbol belongs to
type SymbolKind string

const (
	KindClass    SymbolKind = "class"
	KindFunction SymbolKind = "function"
	KindImport   SymbolKind = "import"
	KindExport   SymbolKind = "export"
)

// Symbol is a named declaration located by line numbers (1-based, inclusive)
type Symbol struct {
	Name      string `json:"name"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Module    string `json:"module,omitempty"` // imports only
}

// Validate checks line bounds
func (s *Symbol) Validate() error {
	if s.StartLine <= 0 || s.EndLine < s.StartLine {
		return ErrInvalidLines
	}
	return nil
}

// SymbolTable is the per-file result of symbol extraction
type SymbolTable struct {
	Classes   []Symbol `json:"classes"`
	Functions []Symbol `json:"functions"`
	Imports   []Symbol `json:"imports"`
	Exports   []Symbol `json:"exports"`
}

// Empty reports whether no symbols were found
func (t *SymbolTable) Empty() bool {
	return len(t.Classes) == 0 && len(t.Functions) == 0 && len(t.Imports) == 0 && len(t.Exports) == 0
}

// Count returns the total number of symbols
func (t *SymbolTable) Count() int {
	return len(t.Classes) + len(t.Functions) + len(t.Imports) + len(t.Exports)
}

// FunctionNames returns the distinct function names in declaration order
func (t *SymbolTable) FunctionNames() []string {
	return distinctNames(t.Functions)
}

// ExportNames returns the distinct export names in declaration order
func (t *SymbolTable) ExportNames() []string {
	return distinctNames(t.Exports)
}

// ImportModules returns the distinct imported module strings in declaration order
func (t *SymbolTable) ImportModules() []string {
	seen := make(map[string]struct{}, len(t.Imports))
	out := make([]string, 0, len(t.Imports))
	for _, imp := range t.Imports {
		if _, ok := seen[imp.Module]; ok || imp.Module == "" {
			continue
		}
		seen[imp.Module] = struct{}{}
		out = append(out, imp.Module)
	}
	return out
}

func distinctNames(symbols []Symbol) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s.Name)
	}
	return out
}
