package searcher

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/pkg/types"
)

// recordingGenerator answers every prompt with reply and remembers which
// files it was asked about
type recordingGenerator struct {
	reply string
	calls int32
	files []string
}

func (r *recordingGenerator) generator() generator.Generator {
	return generator.Func(func(_ context.Context, prompt string) (string, error) {
		atomic.AddInt32(&r.calls, 1)
		for _, line := range strings.Split(prompt, "\n") {
			if strings.HasPrefix(line, "File: ") {
				r.files = append(r.files, strings.TrimPrefix(line, "File: "))
			}
		}
		return r.reply, nil
	})
}

func noThrottleSearcher(gen generator.Generator, cfg Config) *Searcher {
	return NewSearcher(nil, gen, cfg, WithThrottle(NoThrottle{}))
}

func TestTriModel_EntryPointRanksFirst(t *testing.T) {
	rec := &recordingGenerator{reply: "core-logic|downstream"}
	req := orderRequest("order")
	req.EntryPoint = "src/orderController.js"

	results, err := noThrottleSearcher(rec.generator(), DefaultConfig()).TriModel(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	entry := results[0]
	assert.Equal(t, "src/orderController.js", entry.File)
	assert.Equal(t, types.ClassEntryPoint, entry.Classification)
	// (0.25×1.43/2.31 + 0.15×1 + 0.25×0.93) × 1.5
	want := (0.25*1.43/2.31 + 0.15 + 0.25*0.93) * 1.5
	assert.InDelta(t, want, entry.FinalScore, 1e-9)
	require.NotNil(t, entry.RelationshipScore)
	assert.InDelta(t, 1.0, *entry.RelationshipScore, 1e-9)

	service := results[1]
	assert.Equal(t, "src/orderService.js", service.File)
	assert.Equal(t, types.ClassCoreLogic, service.Classification)
	assert.Equal(t, types.PositionDownstream, service.WorkflowPosition)
	require.NotNil(t, service.ClassificationScore)
	assert.InDelta(t, 0.7+0.3*0.925, *service.ClassificationScore, 1e-9)

	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.calls), "only the service is sent to the model")
	assert.Equal(t, []string{"src/orderService.js"}, rec.files)

	for _, r := range results {
		require.NotNil(t, r.ScorePercentage)
		assert.LessOrEqual(t, *r.ScorePercentage, 100)
		assert.Equal(t, Percentage(r.FinalScore), *r.ScorePercentage)
		assert.NotNil(t, r.Matches)
	}
}

func TestTriModel_EntryPointAddedWhenUnmatched(t *testing.T) {
	req := orderRequest("order")
	req.EntryPoint = "scripts/seed.js"

	results, err := noThrottleSearcher(nil, DefaultConfig()).TriModel(context.Background(), req)
	require.NoError(t, err)

	var seed *types.RankedResult
	for i := range results {
		if results[i].File == "scripts/seed.js" {
			seed = &results[i]
		}
	}
	require.NotNil(t, seed, "the entry point is always a candidate")
	assert.Equal(t, types.ClassEntryPoint, seed.Classification)
	assert.Zero(t, seed.StructureScore)
}

func TestTriModel_UnknownEntryPoint(t *testing.T) {
	req := orderRequest("order")
	req.EntryPoint = "src/missing.js"

	_, err := noThrottleSearcher(nil, DefaultConfig()).TriModel(context.Background(), req)
	assert.ErrorIs(t, err, ErrEntryPointNotFound)
}

func TestTriModel_MaxClassified(t *testing.T) {
	rec := &recordingGenerator{reply: "helper|parallel"}
	cfg := DefaultConfig()
	cfg.TriModel.MaxClassified = 1

	results, err := noThrottleSearcher(rec.generator(), cfg).TriModel(context.Background(), orderRequest("order"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"src/orderService.js"}, rec.files, "only the best hybrid candidate is classified")
	for _, r := range results {
		if r.File == "src/orderController.js" {
			assert.Equal(t, types.ClassUnknown, r.Classification)
			require.NotNil(t, r.ClassificationScore)
			assert.Zero(t, *r.ClassificationScore)
		}
	}
}

func TestTriModel_WithoutGenerator(t *testing.T) {
	results, err := noThrottleSearcher(nil, DefaultConfig()).TriModel(context.Background(), orderRequest("order"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, types.ClassUnknown, r.Classification)
		assert.Greater(t, r.FinalScore, 0.0)
	}
}

func TestTriModel_ScoreCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TriModel.StructureWeight = 100
	req := orderRequest("order")

	results, err := noThrottleSearcher(nil, cfg).TriModel(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.InDelta(t, 5.0, results[0].FinalScore, 1e-9)
	require.NotNil(t, results[0].ScorePercentage)
	assert.Equal(t, 100, *results[0].ScorePercentage)
}

func TestTriModel_NoMatches(t *testing.T) {
	results, err := noThrottleSearcher(nil, DefaultConfig()).TriModel(context.Background(), orderRequest("zzzzqqq"))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 0},
		{-1, 0},
		{math.NaN(), 0},
		{0.004, 0},
		{0.456, 46},
		{1.0, 100},
		{4.2, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.score), "score %v", tt.score)
	}
}

// synergyRequest gives the order service and controller both a structure
// and a semantic match
func synergyRequest() (Request, *fakeEmbedder) {
	emb := &fakeEmbedder{
		vectors:  map[string][]float32{"order": {1, 0}},
		fallback: []float32{0, 1},
	}
	req := orderRequest("order")
	req.Lookup = staticLookup(map[string][]float32{
		"src/orderService.js":    {1, 0},
		"src/orderController.js": {1, 0},
	})
	return req, emb
}

func TestTriModel_SynergyMultipliers(t *testing.T) {
	req, emb := synergyRequest()
	gen := generator.Func(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "File: src/orderController.js") {
			return "unrelated|unrelated", nil
		}
		return "core-logic|downstream", nil
	})
	cfg := DefaultConfig()
	tc := cfg.TriModel

	out, err := NewSearcher(emb, gen, cfg, WithThrottle(NoThrottle{})).Run(context.Background(), types.ModeTriModel, req)
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	require.Len(t, out.Results, 2)

	byFile := map[string]types.RankedResult{}
	for _, r := range out.Results {
		byFile[r.File] = r
	}
	service, controller := byFile["src/orderService.js"], byFile["src/orderController.js"]
	require.NotNil(t, service.RelationshipScore)
	require.NotNil(t, service.ClassificationScore)
	require.NotNil(t, controller.RelationshipScore)
	require.NotNil(t, controller.ClassificationScore)
	assert.True(t, service.HasSynergy)
	assert.True(t, controller.HasSynergy)

	weighted := func(r types.RankedResult, normStructure float64) float64 {
		return tc.StructureWeight*normStructure +
			tc.SemanticWeight*r.SemanticScore +
			tc.RelationshipWeight*(*r.RelationshipScore) +
			tc.ClassificationWeight*(*r.ClassificationScore)
	}

	// structure, semantic, relationship 0.75 > 0.3 and classification 0.925 > 0.5
	assert.InDelta(t, 0.75, *service.RelationshipScore, 1e-9)
	assert.InDelta(t, 0.7+0.3*0.75, *service.ClassificationScore, 1e-9)
	assert.InDelta(t, weighted(service, 1)*1.8, service.FinalScore, 1e-9)
	assert.InDelta(t, (0.25+0.35*0.7+0.15*0.75+0.25*0.925)*1.8, service.FinalScore, 1e-9)

	// both detectives agree but the classification stays below 0.5
	assert.Less(t, *controller.ClassificationScore, 0.5)
	norm := controller.StructureScore / service.StructureScore
	assert.InDelta(t, weighted(controller, norm)*1.4, controller.FinalScore, 1e-9)
}

func TestTriModel_ReportsFailedClassification(t *testing.T) {
	gen := generator.Func(func(context.Context, string) (string, error) {
		return "", errors.New("model offline")
	})
	out, err := noThrottleSearcher(gen, DefaultConfig()).Run(context.Background(), types.ModeTriModel, orderRequest("order"))
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	require.NotEmpty(t, out.Results)
	for _, r := range out.Results {
		assert.Equal(t, types.ClassUnknown, r.Classification)
	}

	out, err = noThrottleSearcher(nil, DefaultConfig()).Run(context.Background(), types.ModeTriModel, orderRequest("order"))
	require.NoError(t, err)
	assert.False(t, out.Degraded, "an absent generator is not a failure")
}

func TestRun_HybridReportsFailedQueryEmbedding(t *testing.T) {
	req, emb := synergyRequest()
	emb.failQuery = true

	out, err := NewSearcher(emb, nil, DefaultConfig()).Run(context.Background(), types.ModeHybrid, req)
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	require.Len(t, out.Results, 2, "structure results still come back")
	for _, r := range out.Results {
		assert.Zero(t, r.SemanticScore)
	}
}
