package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	LLMProvider      string
	LLMModel         string
	OllamaBaseURL    string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	GeminiAPIKey     string

	ProbeAttempts     int
	ProbeDelay        time.Duration
	ProbeTimeout      time.Duration
	AnalyzeTimeout    time.Duration
	ConverseTimeout   time.Duration
	ConverseMaxTokens int
	Temperature       float64

	ContextWindow       int
	ContextRetain       int
	ConfidenceThreshold float64

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	TokenDSN           string
	TokenFile          string

	MailCallTimeout     time.Duration
	BreakerMaxRequests  int
	BreakerInterval     time.Duration
	BreakerOpenTimeout  time.Duration
	BreakerMinRequests  int
	BreakerFailureRatio float64

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
}

// Load reads an optional dotenv file into the process environment, then
// builds the config from the environment. Variables already set win over the
// file. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	home, _ := os.UserHomeDir()
	cfg := Config{
		HTTPAddr:  getenvDefault("MAILVOICE_HTTP_ADDR", ":9020"),
		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "json"),

		LLMProvider:      strings.ToLower(getenvDefault("LLM_PROVIDER", "ollama")),
		LLMModel:         getenvDefault("LLM_MODEL", "llama2"),
		OllamaBaseURL:    getenvDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OpenAIBaseURL:    getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicBaseURL: getenvDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),

		ProbeAttempts:     getenvIntDefault("LLM_PROBE_ATTEMPTS", 3),
		ProbeDelay:        getenvDurationDefault("LLM_PROBE_DELAY", 2*time.Second),
		ProbeTimeout:      getenvDurationDefault("LLM_PROBE_TIMEOUT", 5*time.Second),
		AnalyzeTimeout:    getenvDurationDefault("LLM_ANALYZE_TIMEOUT", 10*time.Second),
		ConverseTimeout:   getenvDurationDefault("LLM_CONVERSE_TIMEOUT", 30*time.Second),
		ConverseMaxTokens: getenvIntDefault("LLM_CONVERSE_MAX_TOKENS", 512),
		Temperature:       getenvFloatDefault("LLM_TEMPERATURE", 0.7),

		ContextWindow:       getenvIntDefault("CONTEXT_WINDOW", 5),
		ContextRetain:       getenvIntDefault("CONTEXT_RETAIN", 100),
		ConfidenceThreshold: getenvFloatDefault("CONFIDENCE_THRESHOLD", 0.7),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getenvDefault("GOOGLE_REDIRECT_URL", "http://localhost:8085/callback"),
		TokenDSN:           os.Getenv("TOKEN_DB_DSN"),
		TokenFile:          getenvDefault("TOKEN_FILE", home+"/.config/mailvoice/token.json"),

		MailCallTimeout:     getenvDurationDefault("MAIL_CALL_TIMEOUT", 15*time.Second),
		BreakerMaxRequests:  getenvIntDefault("MAIL_BREAKER_MAX_REQUESTS", 3),
		BreakerInterval:     getenvDurationDefault("MAIL_BREAKER_INTERVAL", time.Minute),
		BreakerOpenTimeout:  getenvDurationDefault("MAIL_BREAKER_TIMEOUT", 30*time.Second),
		BreakerMinRequests:  getenvIntDefault("MAIL_BREAKER_MIN_REQUESTS", 3),
		BreakerFailureRatio: getenvFloatDefault("MAIL_BREAKER_FAILURE_RATIO", 0.6),

		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:    getenvDefault("MQTT_CLIENT_ID", "mailvoice"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "mailvoice"),
	}

	switch cfg.LLMProvider {
	case "none", "ollama":
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "claude":
		if cfg.AnthropicAPIKey == "" {
			return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return Config{}, fmt.Errorf("unsupported LLM_PROVIDER: %s", cfg.LLMProvider)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return Config{}, fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", cfg.ConfidenceThreshold)
	}
	if cfg.ProbeAttempts < 1 {
		return Config{}, fmt.Errorf("LLM_PROBE_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

// RequireGoogle reports whether the OAuth client settings needed to reach the
// mailbox are present.
func (c Config) RequireGoogle() error {
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	return nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}

// getenvDurationDefault accepts Go durations ("1500ms") or bare seconds.
func getenvDurationDefault(key string, val time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return val
}
