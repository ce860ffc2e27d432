package embedder

import (
	"fmt"
	"strings"
)

// Environment variables carrying provider API keys
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// Config holds embedder configuration
type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size"`
}

// New creates an embedder with explicit configuration. The "none"
// provider returns ErrNoProviderEnabled so callers can run without the
// semantic signal.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		if cfg.BaseURL != "" {
			return newCustomHTTP(cfg, ProviderJina, DefaultJinaModel, JinaDimension, cache)
		}
		emb, err = NewJinaProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOpenAI:
		if cfg.BaseURL != "" {
			return newCustomHTTP(cfg, ProviderOpenAI, DefaultOpenAIModel, OpenAIDimension, cache)
		}
		emb, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultOllamaURL
		}
		return newCustomHTTP(cfg, ProviderOllama, DefaultOllamaModel, OllamaDimension, cache)
	case ProviderLocal, "":
		emb, err = NewLocalProvider(cache)
	case ProviderNone:
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return emb, nil
}

// newCustomHTTP targets a self-hosted or proxied endpoint speaking the
// provider's protocol; the API key is optional there.
func newCustomHTTP(cfg Config, name, defaultModel string, defaultDim int, cache *Cache) (Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDim
	}
	p, err := NewHTTPProvider(HTTPConfig{
		Name: name, BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: model, Dimension: dim,
	}, cache)
	if err != nil {
		return nil, err
	}
	return p, nil
}
