package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer answers /v1/chat/completions with reply, or with status
// when it is not 200.
func fakeChatServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	server := fakeChatServer(t, http.StatusOK, "  core-logic|downstream\n")
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL + "/v1/", Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, "test-model", g.Model())

	text, err := g.Generate(context.Background(), "classify this file")
	require.NoError(t, err)
	assert.Equal(t, "core-logic|downstream", text)
}

func TestOpenAIGenerator_EmptyReply(t *testing.T) {
	server := fakeChatServer(t, http.StatusOK, "   ")
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL + "/v1", Model: "test-model"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "classify")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	server := fakeChatServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL + "/v1", Model: "test-model"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "classify")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestOpenAIGenerator_EmptyPrompt(t *testing.T) {
	g, err := NewOpenAIGenerator(OpenAIConfig{Model: "m"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), " \n")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestNew(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")

	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantErr   error
	}{
		{"unset", Config{}, "", ErrNoGenerator},
		{"none", Config{Provider: "None"}, "", ErrNoGenerator},
		{"ollama default", Config{Provider: "ollama"}, DefaultOllamaModel, nil},
		{"ollama custom", Config{Provider: "ollama", Model: "qwen2.5-coder"}, "qwen2.5-coder", nil},
		{"openai without key", Config{Provider: "openai"}, "", ErrNoGenerator},
		{"openai with key", Config{Provider: "openai", APIKey: "k"}, DefaultOpenAIModel, nil},
		{"openai compatible endpoint", Config{Provider: "openai", BaseURL: "http://vllm:8000/v1", Model: "m"}, "m", nil},
		{"unknown", Config{Provider: "bard"}, "", ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, g.Model())
		})
	}
}

func TestNew_OpenAIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	g, err := New(Config{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, g.Model())
}

func TestFunc(t *testing.T) {
	var got string
	g := Func(func(_ context.Context, prompt string) (string, error) {
		got = prompt
		return "helper|parallel", nil
	})
	out, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "p", got)
	assert.Equal(t, "helper|parallel", out)
	assert.Equal(t, "func", g.Model())
}
