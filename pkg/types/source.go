package types

import "strings"

// SourceFile is a file handed to the engine by a file source
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Dir returns the slash-separated directory part of the path ("" for root files)
func (f SourceFile) Dir() string {
	idx := strings.LastIndex(f.Path, "/")
	if idx < 0 {
		return ""
	}
	return f.Path[:idx]
}

// Base returns the file name without its directory
func (f SourceFile) Base() string {
	return f.Path[strings.LastIndex(f.Path, "/")+1:]
}

// Progress reports how far a long-running operation has come
type Progress struct {
	Stage string `json:"stage"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
	File  string `json:"file,omitempty"`
}

// Fraction returns completion in [0, 1]
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}
