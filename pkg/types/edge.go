package types

// EdgeType distinguishes how two files are related
type EdgeType string

const (
	EdgeImport EdgeType = "import"
	EdgeCall   EdgeType = "call"
)

// DependencyEdge is a directed file-to-file relationship
type DependencyEdge struct {
	From       string   `json:"fromFile"`
	To         string   `json:"toFile"`
	Type       EdgeType `json:"type"`
	Line       int      `json:"line"`
	Confidence float64  `json:"confidence"`
}

// Validate checks the edge is well formed
func (e *DependencyEdge) Validate() error {
	if e.From == "" || e.To == "" {
		return ErrEmptyPath
	}
	if e.Type != EdgeImport && e.Type != EdgeCall {
		return ErrInvalidEdgeType
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return ErrInvalidScore
	}
	return nil
}
