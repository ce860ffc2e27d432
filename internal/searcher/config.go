package searcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every weight, multiplier and limit used by the scorers.
// DefaultConfig carries the tuned defaults; all of them are overridable
// from the config file's scoring section.
type Config struct {
	// Structure scorer evidence weights
	PathWeight     float64 `yaml:"path_weight"`
	ClassWeight    float64 `yaml:"class_weight"`
	FunctionWeight float64 `yaml:"function_weight"`
	ExportWeight   float64 `yaml:"export_weight"`
	ImportWeight   float64 `yaml:"import_weight"`
	ContentWeight  float64 `yaml:"content_weight"` // per occurrence
	ContentCap     float64 `yaml:"content_cap"`
	// MultiKeywordBoost is added per extra distinct token matched
	MultiKeywordBoost float64 `yaml:"multi_keyword_boost"`
	MinTokenLength    int     `yaml:"min_token_length"`

	// Semantic scorer
	ContentBlend  float64 `yaml:"content_blend"`
	FilenameBlend float64 `yaml:"filename_blend"`
	// MinSimilarity drops weak semantic matches; 0 keeps every file
	MinSimilarity float64 `yaml:"min_similarity"`

	// Hybrid combination
	StructureWeight   float64 `yaml:"structure_weight"`
	SemanticWeight    float64 `yaml:"semantic_weight"`
	SynergyMultiplier float64 `yaml:"synergy_multiplier"`
	ScoreCap          float64 `yaml:"score_cap"`
	MaxResults        int     `yaml:"max_results"`

	// Tri-model combination
	TriModel TriModelConfig `yaml:"tri_model"`
}

// TriModelConfig holds the four-way weights, synergy rules and classifier
// batching of the tri-model search.
type TriModelConfig struct {
	StructureWeight      float64 `yaml:"structure_weight"`
	SemanticWeight       float64 `yaml:"semantic_weight"`
	RelationshipWeight   float64 `yaml:"relationship_weight"`
	ClassificationWeight float64 `yaml:"classification_weight"`

	FullSynergy     float64 `yaml:"full_synergy"`
	BasicSynergy    float64 `yaml:"basic_synergy"`
	EntryPointBoost float64 `yaml:"entry_point_boost"`
	// thresholds a file must exceed to count toward full synergy
	RelationshipThreshold   float64 `yaml:"relationship_threshold"`
	ClassificationThreshold float64 `yaml:"classification_threshold"`

	// EntryBlend weights the entry-point score against the base
	// relationship score
	EntryBlend float64 `yaml:"entry_blend"`
	// LabelBlend weights the label score against the relationship score
	LabelBlend float64 `yaml:"label_blend"`

	BatchSize     int           `yaml:"batch_size"`
	BatchInterval time.Duration `yaml:"batch_interval"`
	MaxClassified int           `yaml:"max_classified"`
	// ContentPreview bounds the bytes of file content put in a prompt
	ContentPreview int `yaml:"content_preview"`
}

// DefaultConfig returns the default scoring configuration
func DefaultConfig() Config {
	return Config{
		PathWeight:        0.6,
		ClassWeight:       1.0,
		FunctionWeight:    0.8,
		ExportWeight:      0.5,
		ImportWeight:      0.4,
		ContentWeight:     0.1,
		ContentCap:        0.5,
		MultiKeywordBoost: 0.25,
		MinTokenLength:    3,

		ContentBlend:  0.7,
		FilenameBlend: 0.3,
		MinSimilarity: 0,

		StructureWeight:   0.4,
		SemanticWeight:    0.6,
		SynergyMultiplier: 2.0,
		ScoreCap:          5.0,
		MaxResults:        20,

		TriModel: TriModelConfig{
			StructureWeight:         0.25,
			SemanticWeight:          0.35,
			RelationshipWeight:      0.15,
			ClassificationWeight:    0.25,
			FullSynergy:             1.8,
			BasicSynergy:            1.4,
			EntryPointBoost:         1.5,
			RelationshipThreshold:   0.3,
			ClassificationThreshold: 0.5,
			EntryBlend:              0.7,
			LabelBlend:              0.7,
			BatchSize:               5,
			BatchInterval:           100 * time.Millisecond,
			MaxClassified:           20,
			ContentPreview:          1500,
		},
	}
}

// Fingerprint digests every setting. Configurations that may rank
// differently have different fingerprints.
func (c Config) Fingerprint() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", c))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Validate checks the configuration for values that would break scoring
func (c Config) Validate() error {
	var errs []error

	nonNegative := map[string]float64{
		"path_weight":         c.PathWeight,
		"class_weight":        c.ClassWeight,
		"function_weight":     c.FunctionWeight,
		"export_weight":       c.ExportWeight,
		"import_weight":       c.ImportWeight,
		"content_weight":      c.ContentWeight,
		"content_cap":         c.ContentCap,
		"multi_keyword_boost": c.MultiKeywordBoost,
		"structure_weight":    c.StructureWeight,
		"semantic_weight":     c.SemanticWeight,
	}
	for name, v := range nonNegative {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}

	if c.MinTokenLength < 1 {
		errs = append(errs, fmt.Errorf("min_token_length must be >= 1, got %d", c.MinTokenLength))
	}
	if c.ContentBlend < 0 || c.FilenameBlend < 0 || c.ContentBlend+c.FilenameBlend <= 0 {
		errs = append(errs, errors.New("content_blend and filename_blend must be >= 0 and not both zero"))
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("min_similarity must be in [0,1], got %v", c.MinSimilarity))
	}
	if c.SynergyMultiplier < 1 {
		errs = append(errs, fmt.Errorf("synergy_multiplier must be >= 1, got %v", c.SynergyMultiplier))
	}
	if c.ScoreCap <= 0 {
		errs = append(errs, fmt.Errorf("score_cap must be > 0, got %v", c.ScoreCap))
	}
	if c.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("max_results must be >= 1, got %d", c.MaxResults))
	}

	t := c.TriModel
	if t.StructureWeight < 0 || t.SemanticWeight < 0 || t.RelationshipWeight < 0 || t.ClassificationWeight < 0 {
		errs = append(errs, errors.New("tri_model weights must be >= 0"))
	}
	if t.FullSynergy < 1 || t.BasicSynergy < 1 || t.EntryPointBoost < 1 {
		errs = append(errs, errors.New("tri_model synergy multipliers must be >= 1"))
	}
	if t.EntryBlend < 0 || t.EntryBlend > 1 || t.LabelBlend < 0 || t.LabelBlend > 1 {
		errs = append(errs, errors.New("tri_model blends must be in [0,1]"))
	}
	if t.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("tri_model.batch_size must be >= 1, got %d", t.BatchSize))
	}
	if t.BatchInterval < 0 {
		errs = append(errs, errors.New("tri_model.batch_interval must be >= 0"))
	}
	if t.MaxClassified < 0 {
		errs = append(errs, errors.New("tri_model.max_classified must be >= 0"))
	}

	return errors.Join(errs...)
}

// combineOptions extracts the hybrid combination parameters
func (c Config) combineOptions() CombineOptions {
	return CombineOptions{
		StructureWeight:   c.StructureWeight,
		SemanticWeight:    c.SemanticWeight,
		SynergyMultiplier: c.SynergyMultiplier,
		ScoreCap:          c.ScoreCap,
	}
}
