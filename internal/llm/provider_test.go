package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailvoice/internal/domain"
)

func TestOllamaGenerateSendsOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"hello there","done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.Client(), srv.URL+"/", "")
	out, err := p.Generate(context.Background(), domain.GenerateRequest{
		Prompt:      "hi",
		MaxTokens:   512,
		Temperature: 0.7,
		Stop:        []string{"User:", "[INST]"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "llama2", got["model"])
	assert.Equal(t, "hi", got["prompt"])
	assert.Equal(t, false, got["stream"])
	opts := got["options"].(map[string]any)
	assert.EqualValues(t, 512, opts["num_predict"])
	assert.InDelta(t, 0.7, opts["temperature"], 1e-9)
	assert.Equal(t, []any{"User:", "[INST]"}, opts["stop"])
}

func TestOllamaGenerateNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.Client(), srv.URL, "llama2")
	_, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOpenAIGenerate(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"intent: send"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.Client(), srv.URL, "sk-test", "gpt-4o-mini")
	out, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "analyze", MaxTokens: 64, Stop: []string{"User:"}})
	require.NoError(t, err)
	assert.Equal(t, "intent: send", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "analyze", got.Messages[0].Content)
	assert.Equal(t, 64, got.MaxTokens)
	assert.Equal(t, []string{"User:"}, got.Stop)
}

func TestOpenAIGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.Client(), srv.URL, "", "m").Generate(context.Background(), domain.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
}

func TestClaudeGenerateJoinsTextBlocks(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"one"},{"type":"text","text":"two"}]}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider(srv.Client(), srv.URL, "key", "claude-test")
	out, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "p", Stop: []string{"[INST]"}})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", out)
	assert.Equal(t, claudeDefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, []string{"[INST]"}, got.StopSequences)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(context.Background(), Config{Provider: "ollama", OllamaBaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaProvider{}, p)

	_, err = NewProvider(context.Background(), Config{Provider: "gemini"})
	require.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Provider: "bogus"})
	require.Error(t, err)
}
