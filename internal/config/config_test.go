package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_PROBE_DELAY", "")
	t.Setenv("CONFIDENCE_THRESHOLD", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 3, cfg.ProbeAttempts)
	assert.Equal(t, 2*time.Second, cfg.ProbeDelay)
	assert.Equal(t, 10*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, 512, cfg.ConverseMaxTokens)
	assert.Equal(t, 0.7, cfg.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.ContextWindow)
}

func TestFromEnvDurations(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("LLM_PROBE_DELAY", "250ms")
	t.Setenv("LLM_ANALYZE_TIMEOUT", "4")
	t.Setenv("LLM_CONVERSE_TIMEOUT", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeDelay)
	assert.Equal(t, 4*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, 30*time.Second, cfg.ConverseTimeout)
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"openai without key", map[string]string{"LLM_PROVIDER": "openai", "OPENAI_API_KEY": ""}},
		{"claude without key", map[string]string{"LLM_PROVIDER": "claude", "ANTHROPIC_API_KEY": ""}},
		{"gemini without key", map[string]string{"LLM_PROVIDER": "gemini", "GEMINI_API_KEY": ""}},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "eliza"}},
		{"threshold out of range", map[string]string{"LLM_PROVIDER": "none", "CONFIDENCE_THRESHOLD": "1.5"}},
		{"no probe attempts", map[string]string{"LLM_PROVIDER": "none", "LLM_PROBE_ATTEMPTS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}

func TestLoadReadsDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MQTT_TOPIC_PREFIX=from-file\nLLM_MODEL=mistral\n"), 0o600))

	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("LLM_MODEL", "llama3")
	// Setenv first so cleanup restores the original value.
	t.Setenv("MQTT_TOPIC_PREFIX", "")
	require.NoError(t, os.Unsetenv("MQTT_TOPIC_PREFIX"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MQTTTopicPrefix)
	assert.Equal(t, "llama3", cfg.LLMModel)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "none")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestRequireGoogle(t *testing.T) {
	assert.Error(t, Config{}.RequireGoogle())
	assert.NoError(t, Config{GoogleClientID: "id", GoogleClientSecret: "secret"}.RequireGoogle())
}
