// Package generator provides the generative text capability used by the
// tri-model classifier.
//
// A Generator turns a prompt into text. Absence of a generator is a normal
// configuration (ProviderNone): callers receive ErrNoGenerator from New and
// skip classification rather than failing.
package generator

import (
	"context"
	"errors"
	"strings"
)

// Common errors
var (
	ErrNoGenerator         = errors.New("no generative provider enabled")
	ErrUnsupportedProvider = errors.New("unsupported generative provider")
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrEmptyResponse       = errors.New("provider returned no text")
	ErrGenerationFailed    = errors.New("generation failed")
)

// Generator produces text for a prompt
type Generator interface {
	// Generate returns the model's completion of prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier
	Model() string
}

// Func adapts a plain function to the Generator interface
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Model identifies function-backed generators
func (f Func) Model() string {
	return "func"
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}
