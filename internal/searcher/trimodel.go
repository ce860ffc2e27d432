package searcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/contextrank/pkg/types"
)

// TriModel ranks files by four signals: structure, semantic similarity,
// relationship to the project (or the entry point) and the generative
// classifier's verdict.
//
// Candidates are every structure or semantic match plus the entry point.
// Only the cfg.TriModel.MaxClassified best candidates by hybrid score are
// sent to the classifier; the rest keep classification 0.
func (s *Searcher) TriModel(ctx context.Context, req Request) ([]types.RankedResult, error) {
	out, err := s.triModel(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (s *Searcher) triModel(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	tc := s.cfg.TriModel

	byPath := make(map[string]types.SourceFile, len(req.Files))
	for _, f := range req.Files {
		byPath[f.Path] = f
	}
	entry := req.EntryPoint
	if entry != "" {
		if _, ok := byPath[entry]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, entry)
		}
	}

	ast, llm, degraded, err := s.detectives(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tri-model search: %w", err)
	}
	hybrid := Combine(ast, llm, s.cfg.combineOptions())

	candidates := hybrid
	if entry != "" && !containsHybrid(hybrid, entry) {
		candidates = append(candidates, HybridMatch{File: entry})
	}

	rel := NewRelationships(req.Files, req.Tables, req.Graph)
	relScores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		relScores[c.File] = rel.Score(c.File, entry, tc.EntryBlend)
	}
	relationship := func(path string) float64 { return relScores[path] }

	var toClassify []types.SourceFile
	sent := 0
	for _, c := range candidates {
		f, ok := byPath[c.File]
		if !ok {
			continue
		}
		if c.File == entry {
			toClassify = append(toClassify, f)
			continue
		}
		if sent < tc.MaxClassified {
			toClassify = append(toClassify, f)
			sent++
		}
	}

	classes, err := s.classifier.Classify(ctx, req.Query, entry, toClassify, relationship)
	if err != nil {
		return nil, fmt.Errorf("tri-model search: %w", err)
	}

	results := make([]types.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		r := relScores[c.File]
		cls, ok := classes[c.File]
		if !ok {
			cls = FileClassification{Label: types.ClassUnknown}
		}
		if cls.Failed {
			degraded = true
		}

		final := tc.StructureWeight*c.NormalizedStructure +
			tc.SemanticWeight*c.SemanticScore +
			tc.RelationshipWeight*r +
			tc.ClassificationWeight*cls.Score

		basic := c.InStructure && c.InSemantic
		switch {
		case basic && r > tc.RelationshipThreshold && cls.Score > tc.ClassificationThreshold:
			final *= tc.FullSynergy
		case basic:
			final *= tc.BasicSynergy
		}
		if c.File == entry {
			final *= tc.EntryPointBoost
		}
		if s.cfg.ScoreCap > 0 {
			final = math.Min(final, s.cfg.ScoreCap)
		}
		if final <= 0 {
			continue
		}

		relScore := r
		clsScore := cls.Score
		pct := Percentage(final)
		results = append(results, types.RankedResult{
			File:                c.File,
			FinalScore:          final,
			ScorePercentage:     &pct,
			StructureScore:      c.StructureScore,
			SemanticScore:       c.SemanticScore,
			RelationshipScore:   &relScore,
			ClassificationScore: &clsScore,
			HasSynergy:          basic,
			Matches:             nonNilMatches(c.Matches),
			Classification:      cls.Label,
			WorkflowPosition:    cls.Position,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}

	s.metrics.ObserveSearch(string(types.ModeTriModel), time.Since(start))
	s.logger.WithFields(logrus.Fields{
		"query":       req.Query,
		"mode":        types.ModeTriModel,
		"entry_point": entry,
		"classified":  len(toClassify),
		"results":     len(results),
		"degraded":    degraded,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("search complete")
	return &Outcome{Results: results, Degraded: degraded}, nil
}

// Percentage expresses a final score for display: round(score×100),
// capped at 100 and never negative.
func Percentage(score float64) int {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	return int(math.Min(100, math.Round(score*100)))
}

func containsHybrid(matches []HybridMatch, file string) bool {
	for _, m := range matches {
		if m.File == file {
			return true
		}
	}
	return false
}
