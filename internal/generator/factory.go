package generator

import (
	"fmt"
	"os"
	"strings"
)

// EnvOpenAIAPIKey is read when no API key is configured for ProviderOpenAI
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Config selects and configures the generative provider
type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
	MaxTokens int    `yaml:"max_tokens"`
}

// New creates the generator described by cfg. Provider "" and "none" return
// ErrNoGenerator. "ollama" targets DefaultBaseURL unless BaseURL is set;
// "openai" targets api.openai.com unless BaseURL is set and then requires
// an API key.
func New(cfg Config) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", ProviderNone:
		return nil, ErrNoGenerator

	case ProviderOllama:
		model := cfg.Model
		if model == "" {
			model = DefaultOllamaModel
		}
		g, err := NewOpenAIGenerator(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     model,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil

	case ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv(EnvOpenAIAPIKey)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			if apiKey == "" {
				return nil, fmt.Errorf("%w: %s not set", ErrNoGenerator, EnvOpenAIAPIKey)
			}
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		g, err := NewOpenAIGenerator(OpenAIConfig{
			BaseURL:   baseURL,
			APIKey:    apiKey,
			Model:     model,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
