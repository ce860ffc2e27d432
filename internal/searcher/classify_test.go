package searcher

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/pkg/types"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		reply    string
		label    types.Classification
		position types.WorkflowPosition
		ok       bool
	}{
		{"core-logic|downstream", types.ClassCoreLogic, types.PositionDownstream, true},
		{" Helper | Parallel \n", types.ClassHelper, types.PositionParallel, true},
		{"config|unrelated", types.ClassConfig, types.PositionUnrelated, true},
		{"unrelated|unrelated", types.ClassUnrelated, types.PositionUnrelated, true},
		{"entry-point|upstream", types.ClassEntryPoint, types.PositionUpstream, true},
		{"The file is core-logic and sits downstream.", types.ClassCoreLogic, types.PositionDownstream, true},
		{"helper", types.ClassHelper, "", true},
		{"I cannot tell", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			label, position, ok := ParseClassification(tt.reply)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.position, position)
		})
	}
}

func noRelationship(string) float64 { return 0 }

func testTriModelConfig() TriModelConfig {
	cfg := DefaultConfig().TriModel
	cfg.BatchInterval = 0
	return cfg
}

func TestClassifier_Scores(t *testing.T) {
	replies := map[string]string{
		"core.js":   "core-logic|downstream",
		"helper.js": "helper|parallel",
		"conf.js":   "config|unrelated",
		"other.js":  "unrelated|unrelated",
		"sneaky.js": "entry-point|upstream",
	}
	gen := generator.Func(func(_ context.Context, prompt string) (string, error) {
		for file, reply := range replies {
			if strings.Contains(prompt, "File: "+file+"\n") {
				return reply, nil
			}
		}
		return "", errors.New("unexpected prompt")
	})

	var files []types.SourceFile
	for _, name := range []string{"core.js", "helper.js", "conf.js", "other.js", "sneaky.js"} {
		files = append(files, types.SourceFile{Path: name, Content: "x"})
	}

	c := NewClassifier(gen, nil, testTriModelConfig(), nil, nil)
	out, err := c.Classify(context.Background(), "q", "", files, func(string) float64 { return 0.5 })
	require.NoError(t, err)

	tests := []struct {
		file     string
		label    types.Classification
		position types.WorkflowPosition
		score    float64
	}{
		{"core.js", types.ClassCoreLogic, types.PositionDownstream, 0.7*1.0 + 0.15},
		{"helper.js", types.ClassHelper, types.PositionParallel, 0.7*0.7 + 0.15},
		{"conf.js", types.ClassConfig, types.PositionUnrelated, 0.7*0.4 + 0.15},
		{"other.js", types.ClassUnrelated, types.PositionUnrelated, 0.7*0.2 + 0.15},
		// only the chosen entry point may be labelled entry-point
		{"sneaky.js", types.ClassCoreLogic, types.PositionUpstream, 0.7*1.0 + 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got := out[tt.file]
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.position, got.Position)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
			assert.False(t, got.Failed)
		})
	}
}

func TestClassifier_EntryPointLabelledDirectly(t *testing.T) {
	var calls int32
	gen := generator.Func(func(_ context.Context, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "helper|downstream", nil
	})

	files := []types.SourceFile{{Path: "main.js"}, {Path: "util.js"}}
	c := NewClassifier(gen, nil, testTriModelConfig(), nil, nil)
	out, err := c.Classify(context.Background(), "q", "main.js", files, func(p string) float64 {
		if p == "main.js" {
			return 1
		}
		return 0
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "the entry point is never sent to the model")
	assert.Equal(t, types.ClassEntryPoint, out["main.js"].Label)
	assert.InDelta(t, 0.7*0.9+0.3, out["main.js"].Score, 1e-9)
	assert.Equal(t, types.ClassHelper, out["util.js"].Label)
}

func TestClassifier_FailuresAreIsolated(t *testing.T) {
	gen := generator.Func(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "File: broken.js\n"):
			return "", errors.New("model crashed")
		case strings.Contains(prompt, "File: garbled.js\n"):
			return "no idea", nil
		}
		return "core-logic|upstream", nil
	})
	m := metrics.New()

	files := []types.SourceFile{{Path: "broken.js"}, {Path: "garbled.js"}, {Path: "ok.js"}}
	c := NewClassifier(gen, nil, testTriModelConfig(), nil, m)
	out, err := c.Classify(context.Background(), "q", "", files, noRelationship)
	require.NoError(t, err)

	for _, f := range []string{"broken.js", "garbled.js"} {
		assert.Equal(t, types.ClassUnknown, out[f].Label)
		assert.Zero(t, out[f].Score)
		assert.True(t, out[f].Failed)
	}
	assert.Equal(t, types.ClassCoreLogic, out["ok.js"].Label)

	expected := `
# HELP contextrank_classification_failures_total Files the generative classifier failed to label.
# TYPE contextrank_classification_failures_total counter
contextrank_classification_failures_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "contextrank_classification_failures_total"))
}

func TestClassifier_BatchesAreThrottled(t *testing.T) {
	var calls int32
	gen := generator.Func(func(context.Context, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "helper|parallel", nil
	})

	var files []types.SourceFile
	for i := 0; i < 12; i++ {
		files = append(files, types.SourceFile{Path: string(rune('a'+i)) + ".js"})
	}

	throttle := &countingThrottle{}
	c := NewClassifier(gen, throttle, testTriModelConfig(), nil, nil)
	_, err := c.Classify(context.Background(), "q", "", files, noRelationship)
	require.NoError(t, err)

	assert.Equal(t, int32(12), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&throttle.waits), "12 files in batches of 5")
}

func TestClassifier_NoGenerator(t *testing.T) {
	c := NewClassifier(nil, nil, testTriModelConfig(), nil, nil)
	assert.False(t, c.Available())

	out, err := c.Classify(context.Background(), "q", "main.js", []types.SourceFile{{Path: "main.js"}, {Path: "x.js"}}, noRelationship)
	require.NoError(t, err)
	assert.Equal(t, types.ClassEntryPoint, out["main.js"].Label)
	assert.Equal(t, types.ClassUnknown, out["x.js"].Label)
	assert.Zero(t, out["x.js"].Score)
	assert.False(t, out["x.js"].Failed)
}

func TestClassifier_Cancelled(t *testing.T) {
	gen := generator.Func(func(context.Context, string) (string, error) { return "helper|parallel", nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClassifier(gen, nil, testTriModelConfig(), nil, nil)
	_, err := c.Classify(ctx, "q", "", []types.SourceFile{{Path: "a.js"}}, noRelationship)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewThrottle(t *testing.T) {
	assert.IsType(t, NoThrottle{}, NewThrottle(0))

	th := NewThrottle(20 * time.Millisecond)
	ctx := context.Background()
	start := time.Now()
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
