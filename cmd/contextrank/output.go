package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dshills/contextrank/internal/engine"
	"github.com/dshills/contextrank/pkg/types"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalysis(w io.Writer, a *engine.Analysis) {
	_, _ = fmt.Fprintf(w, "Analyzed %s: %d files (%d extracted, %d reused, %d failed)\n",
		a.Name, a.FileCount, a.Extracted, a.Reused, a.Failed)
	_, _ = fmt.Fprintf(w, "Symbols: %d  Edges: %d  Duration: %s\n", a.SymbolCount, a.EdgeCount, a.Duration.Round(time.Millisecond))
	if a.SnapshotReused {
		_, _ = fmt.Fprintln(w, "Project snapshot reused from cache")
	}
	if len(a.Keywords) > 0 {
		printKeywords(w, a.Keywords)
	}
}

func printEmbeddingStats(w io.Writer, s *engine.EmbeddingStats) {
	if s.Provider == "" {
		_, _ = fmt.Fprintln(w, "No embedding provider configured; nothing to do.")
		return
	}
	_, _ = fmt.Fprintf(w, "Embeddings via %s/%s: %d generated, %d cached, %d failed of %d (%s)\n",
		s.Provider, s.Model, s.Generated, s.Cached, s.Failed, s.Total, s.Duration.Round(time.Millisecond))
}

func printKeywords(w io.Writer, keywords []types.ExtractedKeyword) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEYWORD\tFREQ\tCONFIDENCE\tSOURCES\tFILES")
	for _, k := range keywords {
		sources := make([]string, len(k.Sources))
		for i, s := range k.Sources {
			sources[i] = string(s)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%d\n",
			k.Keyword, k.Frequency, k.Confidence, strings.Join(sources, ","), len(k.RelatedFiles))
	}
	_ = tw.Flush()
}

func printResults(w io.Writer, results []types.RankedResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No files matched the query.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tFILE\tSCORE\t%\tSTRUCT\tSEMANTIC\tNOTES")
	for i, r := range results {
		pct := "-"
		if r.ScorePercentage != nil {
			pct = fmt.Sprintf("%d", *r.ScorePercentage)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%.3f\t%.3f\t%s\n",
			i+1, r.File, r.FinalScore, pct, r.StructureScore, r.SemanticScore, notes(r))
	}
	_ = tw.Flush()
}

func notes(r types.RankedResult) string {
	var parts []string
	if r.HasSynergy {
		parts = append(parts, "synergy")
	}
	if r.Classification != "" && r.Classification != types.ClassUnknown {
		parts = append(parts, string(r.Classification))
	}
	if r.WorkflowPosition != "" && r.WorkflowPosition != types.PositionUnrelated {
		parts = append(parts, string(r.WorkflowPosition))
	}
	return strings.Join(parts, ",")
}
