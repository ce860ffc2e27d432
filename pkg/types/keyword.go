package types

// KeywordSource names where in a project a keyword was seen
type KeywordSource string

const (
	SourceDirectory KeywordSource = "directory"
	SourceFilename  KeywordSource = "filename"
	SourceClass     KeywordSource = "class"
	SourceFunction  KeywordSource = "function"
	SourceImport    KeywordSource = "import"
	SourceExport    KeywordSource = "export"
)

// ExtractedKeyword is a domain term aggregated across a whole project
type ExtractedKeyword struct {
	Keyword      string          `json:"keyword"`
	Frequency    int             `json:"frequency"`
	Sources      []KeywordSource `json:"sources"`
	Confidence   float64         `json:"confidence"`
	RelatedFiles []string        `json:"relatedFiles"`
}
