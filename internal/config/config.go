// Package config loads contextrank settings from defaults, an optional
// YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/contextrank/internal/cache"
	"github.com/dshills/contextrank/internal/embedder"
	"github.com/dshills/contextrank/internal/generator"
	"github.com/dshills/contextrank/internal/logging"
	"github.com/dshills/contextrank/internal/searcher"
	"github.com/dshills/contextrank/internal/source"
)

// DefaultFileName is looked up in the working directory when no config
// file is given explicitly.
const DefaultFileName = "contextrank.yaml"

// Config is the complete process configuration
type Config struct {
	Storage   StorageConfig    `yaml:"storage"`
	Embedding embedder.Config  `yaml:"embedding"`
	Generator generator.Config `yaml:"generator"`
	Source    source.Options   `yaml:"source"`
	Scoring   searcher.Config  `yaml:"scoring"`
	Cache     CacheConfig      `yaml:"cache"`
	Log       logging.Config   `yaml:"log"`
	HTTP      HTTPConfig       `yaml:"http"`
	Workers   int              `yaml:"workers"`
}

// StorageConfig locates the SQLite cache database
type StorageConfig struct {
	// Path of the database file; ":memory:" keeps the cache in process
	Path string `yaml:"path"`
}

// CacheConfig controls eviction of cached records
type CacheConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
}

// HTTPConfig configures the HTTP API server
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Path: defaultDBPath()},
		Embedding: embedder.Config{
			Provider:  embedder.ProviderLocal,
			CacheSize: embedder.DefaultCacheSize,
		},
		Generator: generator.Config{
			Provider:  generator.ProviderNone,
			MaxTokens: generator.DefaultMaxTokens,
		},
		Source:  source.DefaultOptions(),
		Scoring: searcher.DefaultConfig(),
		Cache:   CacheConfig{MaxAge: cache.DefaultMaxAge},
		Log:     logging.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:           "127.0.0.1:8420",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   5 * time.Minute,
		},
	}
}

func defaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".contextrank", "cache.db")
	}
	return filepath.Join(dir, "contextrank", "cache.db")
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Cache.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_age must be positive, got %s", c.Cache.MaxAge))
	}
	if c.Source.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("source.max_file_size must be >= 0, got %d", c.Source.MaxFileSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file. Fields absent from
// the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML. API keys are never written.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Merge overlays the non-zero top-level settings of other onto c.
// Scoring is replaced wholesale when other carries a valid one.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}

	mergeString(&c.Embedding.Provider, other.Embedding.Provider)
	mergeString(&c.Embedding.Model, other.Embedding.Model)
	mergeString(&c.Embedding.BaseURL, other.Embedding.BaseURL)
	mergeString(&c.Embedding.APIKey, other.Embedding.APIKey)
	if other.Embedding.Dimension > 0 {
		c.Embedding.Dimension = other.Embedding.Dimension
	}
	if other.Embedding.CacheSize > 0 {
		c.Embedding.CacheSize = other.Embedding.CacheSize
	}

	mergeString(&c.Generator.Provider, other.Generator.Provider)
	mergeString(&c.Generator.Model, other.Generator.Model)
	mergeString(&c.Generator.BaseURL, other.Generator.BaseURL)
	mergeString(&c.Generator.APIKey, other.Generator.APIKey)
	if other.Generator.MaxTokens > 0 {
		c.Generator.MaxTokens = other.Generator.MaxTokens
	}

	if len(other.Source.Include) > 0 {
		c.Source.Include = other.Source.Include
	}
	if len(other.Source.Exclude) > 0 {
		c.Source.Exclude = other.Source.Exclude
	}
	if len(other.Source.Extensions) > 0 {
		c.Source.Extensions = other.Source.Extensions
	}
	if other.Source.MaxFileSize > 0 {
		c.Source.MaxFileSize = other.Source.MaxFileSize
	}

	if other.Scoring.Validate() == nil {
		c.Scoring = other.Scoring
	}
	if other.Cache.MaxAge > 0 {
		c.Cache.MaxAge = other.Cache.MaxAge
	}
	mergeString(&c.Log.Level, other.Log.Level)
	mergeString(&c.Log.Format, other.Log.Format)
	mergeString(&c.HTTP.Addr, other.HTTP.Addr)
	if len(other.HTTP.AllowedOrigins) > 0 {
		c.HTTP.AllowedOrigins = other.HTTP.AllowedOrigins
	}
	if other.Workers > 0 {
		c.Workers = other.Workers
	}
}

func mergeString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
