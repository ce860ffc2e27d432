package searcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/metrics"
	"github.com/dshills/contextrank/pkg/types"
)

// Throttle paces batches of generative calls
type Throttle interface {
	Wait(ctx context.Context) error
}

// NewThrottle allows one batch per interval. A non-positive interval
// disables throttling.
func NewThrottle(interval time.Duration) Throttle {
	if interval <= 0 {
		return NoThrottle{}
	}
	return &rateThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

type rateThrottle struct {
	limiter *rate.Limiter
}

func (t *rateThrottle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// NoThrottle never waits
type NoThrottle struct{}

// Wait only reports cancellation
func (NoThrottle) Wait(ctx context.Context) error {
	return ctx.Err()
}

// labelScores maps a role label to its base classification score
var labelScores = map[types.Classification]float64{
	types.ClassEntryPoint: 0.9,
	types.ClassCoreLogic:  0.8,
	types.ClassHelper:     0.6,
	types.ClassConfig:     0.4,
}

// positionBonus rewards files on the entry point's workflow path
var positionBonus = map[types.WorkflowPosition]float64{
	types.PositionUpstream:   0.2,
	types.PositionDownstream: 0.2,
	types.PositionParallel:   0.1,
}

var (
	labels = []types.Classification{
		types.ClassEntryPoint, types.ClassCoreLogic, types.ClassHelper, types.ClassConfig, types.ClassUnrelated,
	}
	positions = []types.WorkflowPosition{
		types.PositionUpstream, types.PositionDownstream, types.PositionParallel, types.PositionUnrelated,
	}
	wordRe = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*`)
)

// FileClassification is the classifier's verdict on one file
type FileClassification struct {
	Label      types.Classification
	Position   types.WorkflowPosition
	LabelScore float64
	Score      float64
	Failed     bool
}

// Classifier labels files with a role and workflow position using a
// generative model.
type Classifier struct {
	generator generator.Generator
	throttle  Throttle
	cfg       TriModelConfig
	logger    logrus.FieldLogger
	metrics   *metrics.Collector
}

// NewClassifier creates a classifier. gen may be nil, in which case only
// the entry point is labelled. A nil throttle means NoThrottle.
func NewClassifier(gen generator.Generator, throttle Throttle, cfg TriModelConfig, logger logrus.FieldLogger, m *metrics.Collector) *Classifier {
	if throttle == nil {
		throttle = NoThrottle{}
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Classifier{generator: gen, throttle: throttle, cfg: cfg, logger: logger, metrics: m}
}

// Available reports whether a generative provider is configured
func (c *Classifier) Available() bool {
	return c != nil && c.generator != nil
}

// Classify labels every file. The entry point is labelled entry-point
// without asking the model; every other file goes to the model one at a
// time, in batches of cfg.BatchSize with the throttle awaited before each
// batch. A file whose call or reply fails scores 0 as unknown. Only
// cancellation aborts the run.
func (c *Classifier) Classify(ctx context.Context, query, entry string, files []types.SourceFile, relationship func(string) float64) (map[string]FileClassification, error) {
	out := make(map[string]FileClassification, len(files))

	var pending []types.SourceFile
	for _, f := range files {
		if f.Path == entry && entry != "" {
			out[f.Path] = c.score(types.ClassEntryPoint, "", relationship(f.Path))
			continue
		}
		if !c.Available() {
			out[f.Path] = FileClassification{Label: types.ClassUnknown}
			continue
		}
		pending = append(pending, f)
	}

	batchSize := c.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(pending); start += batchSize {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		for _, f := range pending[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[f.Path] = c.classifyFile(ctx, query, entry, f, relationship(f.Path))
		}
	}

	return out, nil
}

func (c *Classifier) classifyFile(ctx context.Context, query, entry string, file types.SourceFile, rel float64) FileClassification {
	reply, err := c.generator.Generate(ctx, c.prompt(query, entry, file))
	if err == nil {
		label, position, ok := ParseClassification(reply)
		if ok {
			// only the selected entry point may be an entry point
			if label == types.ClassEntryPoint {
				label = types.ClassCoreLogic
			}
			return c.score(label, position, rel)
		}
		err = fmt.Errorf("unrecognised reply %q", reply)
	}

	c.metrics.ClassificationFailed()
	c.logger.WithError(err).WithField("path", file.Path).Warn("classification failed")
	return FileClassification{Label: types.ClassUnknown, Failed: true}
}

func (c *Classifier) score(label types.Classification, position types.WorkflowPosition, rel float64) FileClassification {
	labelScore, ok := labelScores[label]
	if !ok {
		labelScore = 0.2
	}
	labelScore += positionBonus[position]

	blend := c.cfg.LabelBlend
	return FileClassification{
		Label:      label,
		Position:   position,
		LabelScore: labelScore,
		Score:      math.Min(1, blend*labelScore+(1-blend)*rel),
	}
}

func (c *Classifier) prompt(query, entry string, file types.SourceFile) string {
	if entry == "" {
		entry = "none"
	}
	preview := file.Content
	if c.cfg.ContentPreview > 0 && len(preview) > c.cfg.ContentPreview {
		preview = preview[:c.cfg.ContentPreview]
	}

	var b strings.Builder
	b.WriteString("You are classifying source files for a code search.\n")
	fmt.Fprintf(&b, "Query: %s\nEntry point: %s\nFile: %s\n\n", query, entry, file.Path)
	b.WriteString("```\n")
	b.WriteString(preview)
	b.WriteString("\n```\n\n")
	b.WriteString("Role of the file for this query, one of: entry-point, core-logic, helper, config, unrelated.\n")
	b.WriteString("Workflow position relative to the entry point, one of: upstream, downstream, parallel, unrelated.\n")
	b.WriteString("Answer with the two words separated by a pipe, for example: core-logic|downstream\n")
	return b.String()
}

// ParseClassification reads a "label|position" reply. Free-form replies are
// scanned for the first known label and the first known position after it.
// ok is false when no label is found; a missing position is left empty.
func ParseClassification(reply string) (types.Classification, types.WorkflowPosition, bool) {
	reply = strings.ToLower(reply)

	if parts := strings.SplitN(reply, "|", 2); len(parts) == 2 {
		if label, ok := findLabel(wordRe.FindAllString(parts[0], -1)); ok {
			position, _ := findPosition(wordRe.FindAllString(parts[1], -1))
			return label, position, true
		}
	}

	words := wordRe.FindAllString(reply, -1)
	for i, w := range words {
		for _, l := range labels {
			if w == string(l) {
				position, _ := findPosition(words[i+1:])
				return l, position, true
			}
		}
	}
	return "", "", false
}

func findLabel(words []string) (types.Classification, bool) {
	for _, w := range words {
		for _, l := range labels {
			if w == string(l) {
				return l, true
			}
		}
	}
	return "", false
}

func findPosition(words []string) (types.WorkflowPosition, bool) {
	for _, w := range words {
		for _, p := range positions {
			if w == string(p) {
				return p, true
			}
		}
	}
	return "", false
}
