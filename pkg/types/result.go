package types

// MatchKind names the kind of evidence behind a structural match
type MatchKind string

const (
	MatchPath     MatchKind = "path"
	MatchClass    MatchKind = "class"
	MatchFunction MatchKind = "function"
	MatchExport   MatchKind = "export"
	MatchImport   MatchKind = "import"
	MatchContent  MatchKind = "content"
)

// Match is one piece of evidence that a query token relates to a file
type Match struct {
	Kind   MatchKind `json:"kind"`
	Token  string    `json:"token"`
	Name   string    `json:"name,omitempty"`
	Line   int       `json:"line,omitempty"`
	Weight float64   `json:"weight"`
}

// Classification is the coarse role a generative model assigns to a file
type Classification string

const (
	ClassEntryPoint Classification = "entry-point"
	ClassCoreLogic  Classification = "core-logic"
	ClassHelper     Classification = "helper"
	ClassConfig     Classification = "config"
	ClassUnrelated  Classification = "unrelated"
	ClassUnknown    Classification = "unknown"
)

// WorkflowPosition locates a file relative to the entry point
type WorkflowPosition string

const (
	PositionUpstream   WorkflowPosition = "upstream"
	PositionDownstream WorkflowPosition = "downstream"
	PositionParallel   WorkflowPosition = "parallel"
	PositionUnrelated  WorkflowPosition = "unrelated"
)

// SearchMode identifies which ranking pipeline produced a result
type SearchMode string

const (
	ModeHybrid   SearchMode = "hybrid"
	ModeTriModel SearchMode = "tri-model"
)

// RankedResult is a single file in a ranked result list
type RankedResult struct {
	File                string           `json:"file"`
	FinalScore          float64          `json:"finalScore"`
	ScorePercentage     *int             `json:"scorePercentage,omitempty"`
	StructureScore      float64          `json:"structureScore"`
	SemanticScore       float64          `json:"semanticScore"`
	RelationshipScore   *float64         `json:"relationshipScore,omitempty"`
	ClassificationScore *float64         `json:"classificationScore,omitempty"`
	HasSynergy          bool             `json:"hasSynergy"`
	Matches             []Match          `json:"matches"`
	Classification      Classification   `json:"classification,omitempty"`
	WorkflowPosition    WorkflowPosition `json:"workflowPosition,omitempty"`
}
