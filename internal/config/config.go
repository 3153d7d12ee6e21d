package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds configuration for the assistant's LLM provider.
type LLMConfig struct {
	// Provider names the active LLM provider: "google", "anthropic", "openai", "openai_compatible".
	Provider string `yaml:"provider"`

	// GoogleAI-specific config.
	GeminiModel string `yaml:"gemini_model"`

	// Anthropic-specific config.
	AnthropicModel string `yaml:"anthropic_model"`

	// OpenAI-specific config.
	OpenAIModel string `yaml:"openai_model"`

	// OpenAICompatible config.
	OpenAICompatibleProvider string `yaml:"openai_compatible_provider"`
	OpenAICompatibleBaseURL  string `yaml:"openai_compatible_base_url"`

	// APIKey overrides the provider's env var lookup when set.
	APIKey string `yaml:"api_key"`
}

// SearchConfig controls the web-search augmentation path.
type SearchConfig struct {
	// MaxResults caps how many results are embedded in a search-augmented
	// prompt. Defaults to 6.
	MaxResults int `yaml:"max_results"`
}

// RetentionConfig controls the cron-scheduled purge job. Zero days means
// keep forever.
type RetentionConfig struct {
	ChatDays          int    `yaml:"chat_days"`
	CompletedTaskDays int    `yaml:"completed_task_days"`
	Schedule          string `yaml:"schedule"` // 5-field cron expression
}

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// TelemetryConfig controls the OpenTelemetry trace provider.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // "stdout" or "otlp"
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	BindAddr string `yaml:"bind_addr"`
	LogLevel string `yaml:"log_level"`

	AgentName string `yaml:"agent_name"`

	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Retention RetentionConfig `yaml:"retention"`
	CORS      CORSConfig      `yaml:"cors"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Persona is the contents of PERSONA.md, used as the assistant's
	// system prompt. Loaded from disk, never from yaml.
	Persona string `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		BindAddr:  "127.0.0.1:8490",
		LogLevel:  "info",
		AgentName: "StudyBuddy",
		LLM: LLMConfig{
			Provider:    "google",
			GeminiModel: "gemini-2.5-flash",
		},
		Search: SearchConfig{
			MaxResults: 6,
		},
		Retention: RetentionConfig{
			ChatDays:          90,
			CompletedTaskDays: 0,
			Schedule:          "0 3 * * *",
		},
	}
}

// HomeDir returns the go-study home directory, honoring the GOSTUDY_HOME
// override.
func HomeDir() string {
	if override := os.Getenv("GOSTUDY_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".gostudy")
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// PersonaPath returns the path to PERSONA.md within the given home directory.
func PersonaPath(homeDir string) string {
	return filepath.Join(homeDir, "PERSONA.md")
}

// DBPath returns the sqlite database path within the given home directory.
func DBPath(homeDir string) string {
	return filepath.Join(homeDir, "gostudy.db")
}

func Load() (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = HomeDir()

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create gostudy home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	loadTextFiles(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("GOSTUDY_BIND_ADDR"); raw != "" {
		cfg.BindAddr = raw
	}
	if raw := os.Getenv("GOSTUDY_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("GOSTUDY_AGENT_NAME"); raw != "" {
		cfg.AgentName = raw
	}
	if raw := os.Getenv("GEMINI_MODEL"); raw != "" {
		cfg.LLM.GeminiModel = raw
	}
}

func loadTextFiles(cfg *Config) {
	if b, err := os.ReadFile(PersonaPath(cfg.HomeDir)); err == nil {
		cfg.Persona = string(b)
	}
}

func normalize(cfg *Config) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8490"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" || cfg.LLM.Provider == "gemini" {
		cfg.LLM.Provider = "google"
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = 6
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}
	if cfg.Retention.ChatDays < 0 {
		cfg.Retention.ChatDays = 0
	}
	if cfg.Retention.CompletedTaskDays < 0 {
		cfg.Retention.CompletedTaskDays = 0
	}
}

// LLMProviderAPIKey returns the API key for the specified LLM provider.
// Env vars take precedence: GEMINI_API_KEY/GOOGLE_API_KEY, ANTHROPIC_API_KEY,
// OPENAI_API_KEY.
func (c Config) LLMProviderAPIKey(provider string) string {
	switch provider {
	case "google", "":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			return v
		}
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			return v
		}
	case "openai", "openai_compatible":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			return v
		}
	}
	return c.LLM.APIKey
}

// ResolveLLMConfig returns the effective provider, model, and API key.
func (c Config) ResolveLLMConfig() (provider, model, apiKey string) {
	provider = c.LLM.Provider
	if provider == "" {
		provider = "google"
	}
	switch provider {
	case "anthropic":
		model = c.LLM.AnthropicModel
	case "openai", "openai_compatible":
		model = c.LLM.OpenAIModel
	default:
		model = c.LLM.GeminiModel
	}
	apiKey = c.LLMProviderAPIKey(provider)
	return provider, model, apiKey
}

// Fingerprint returns a stable hash of the active config, exposed in healthz.
func (c Config) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "bind=%s|log=%s|provider=%s|model=%s|origins=%v",
		c.BindAddr, c.LogLevel, c.LLM.Provider, c.LLM.GeminiModel, c.CORS.AllowedOrigins)
	return fmt.Sprintf("cfg-%x", h.Sum64())
}
