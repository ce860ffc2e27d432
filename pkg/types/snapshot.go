package types

import "time"

// ProjectSnapshot is the aggregate analysis stored per project hash
type ProjectSnapshot struct {
	ProjectHash string             `json:"projectHash"`
	Name        string             `json:"name"`
	FileCount   int                `json:"fileCount"`
	SymbolCount int                `json:"symbolCount"`
	EdgeCount   int                `json:"edgeCount"`
	Keywords    []ExtractedKeyword `json:"keywords"`
	CreatedAt   time.Time          `json:"createdAt"`
}
