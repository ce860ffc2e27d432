package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dshills/contextrank/internal/embedder"
)

// Environment variables that override file settings
const (
	EnvDBPath            = "CONTEXTRANK_DB_PATH"
	EnvLogLevel          = "CONTEXTRANK_LOG_LEVEL"
	EnvHTTPAddr          = "CONTEXTRANK_HTTP_ADDR"
	EnvEmbeddingProvider = "CONTEXTRANK_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "CONTEXTRANK_EMBEDDING_MODEL"
	EnvEmbeddingURL      = "CONTEXTRANK_EMBEDDING_URL"
	EnvGeneratorProvider = "CONTEXTRANK_GENERATOR_PROVIDER"
	EnvGeneratorModel    = "CONTEXTRANK_GENERATOR_MODEL"
	EnvGeneratorURL      = "CONTEXTRANK_GENERATOR_URL"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvJinaAPIKey        = "JINA_API_KEY"
)

// Loader resolves the layered configuration
type Loader struct {
	// ConfigPath is an explicit YAML file; it must exist when set
	ConfigPath string
	// EnvFiles are loaded with godotenv when present. Variables already
	// set in the process environment win.
	EnvFiles []string
	// Getenv defaults to os.Getenv
	Getenv func(string) string
}

// NewLoader creates a loader for the given explicit config path
func NewLoader(configPath string) *Loader {
	return &Loader{
		ConfigPath: configPath,
		EnvFiles:   []string{"config/.env", ".env"},
		Getenv:     os.Getenv,
	}
}

// Load returns the merged configuration: defaults, then the YAML file
// (ConfigPath, or DefaultFileName when it exists), then .env files, then
// environment overrides. The result is validated.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.ConfigPath
	if path == "" && fileExists(DefaultFileName) {
		path = DefaultFileName
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	for _, f := range l.EnvFiles {
		if !fileExists(f) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	env := &Config{}
	env.Storage.Path = getenv(EnvDBPath)
	env.Log.Level = getenv(EnvLogLevel)
	env.HTTP.Addr = getenv(EnvHTTPAddr)
	env.Embedding.Provider = getenv(EnvEmbeddingProvider)
	env.Embedding.Model = getenv(EnvEmbeddingModel)
	env.Embedding.BaseURL = getenv(EnvEmbeddingURL)
	env.Generator.Provider = getenv(EnvGeneratorProvider)
	env.Generator.Model = getenv(EnvGeneratorModel)
	env.Generator.BaseURL = getenv(EnvGeneratorURL)

	provider := env.Embedding.Provider
	if provider == "" {
		provider = cfg.Embedding.Provider
	}
	if strings.EqualFold(provider, embedder.ProviderJina) {
		env.Embedding.APIKey = getenv(EnvJinaAPIKey)
	} else {
		env.Embedding.APIKey = getenv(EnvOpenAIAPIKey)
	}
	env.Generator.APIKey = getenv(EnvOpenAIAPIKey)

	// a zero Scoring never validates, so Merge keeps cfg.Scoring
	cfg.Merge(env)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
