package searcher

import (
	"math"
	"sort"

	"github.com/dshills/contextrank/pkg/types"
)

// CombineOptions weights the structure and semantic signals
type CombineOptions struct {
	StructureWeight   float64
	SemanticWeight    float64
	SynergyMultiplier float64
	ScoreCap          float64
}

// HybridMatch is a file scored by both detectives
type HybridMatch struct {
	File                string
	StructureScore      float64 // raw structure score
	NormalizedStructure float64 // structure score divided by the maximum
	SemanticScore       float64
	FinalScore          float64
	HasSynergy          bool
	InStructure         bool
	InSemantic          bool
	Matches             []types.Match
}

// Combine merges structure and semantic matches. Structure scores are
// normalised by the largest one (floor 1); semantic similarity is used as
// is. A file found by both gets the synergy multiplier, and every score is
// capped. The result is sorted by final score, highest first; ties keep
// insertion order, structure matches before semantic-only ones.
func Combine(ast []ASTMatch, llm []LLMMatch, opts CombineOptions) []HybridMatch {
	maxStructure := 1.0
	for _, m := range ast {
		maxStructure = math.Max(maxStructure, m.Score)
	}

	index := make(map[string]int, len(ast)+len(llm))
	results := make([]HybridMatch, 0, len(ast)+len(llm))

	for _, m := range ast {
		if _, dup := index[m.File]; dup {
			continue
		}
		index[m.File] = len(results)
		results = append(results, HybridMatch{
			File:                m.File,
			StructureScore:      m.Score,
			NormalizedStructure: m.Score / maxStructure,
			InStructure:         true,
			Matches:             m.Matches,
		})
	}

	for _, m := range llm {
		if i, ok := index[m.File]; ok {
			if !results[i].InSemantic {
				results[i].SemanticScore = m.Score
				results[i].InSemantic = true
			}
			continue
		}
		index[m.File] = len(results)
		results = append(results, HybridMatch{
			File:          m.File,
			SemanticScore: m.Score,
			InSemantic:    true,
		})
	}

	for i := range results {
		r := &results[i]
		final := r.NormalizedStructure*opts.StructureWeight + r.SemanticScore*opts.SemanticWeight
		if r.InStructure && r.InSemantic {
			r.HasSynergy = true
			final *= opts.SynergyMultiplier
		}
		if opts.ScoreCap > 0 && final > opts.ScoreCap {
			final = opts.ScoreCap
		}
		r.FinalScore = final
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	return results
}

// ToRankedResults converts hybrid matches into at most limit ranked results.
// Matches without a positive score carry no evidence and are dropped.
// Tri-model fields stay absent.
func ToRankedResults(matches []HybridMatch, limit int) []types.RankedResult {
	out := make([]types.RankedResult, 0, len(matches))
	for _, m := range matches {
		if m.FinalScore <= 0 {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, types.RankedResult{
			File:           m.File,
			FinalScore:     m.FinalScore,
			StructureScore: m.StructureScore,
			SemanticScore:  m.SemanticScore,
			HasSynergy:     m.HasSynergy,
			Matches:        nonNilMatches(m.Matches),
		})
	}
	return out
}

func nonNilMatches(m []types.Match) []types.Match {
	if m == nil {
		return []types.Match{}
	}
	return m
}
