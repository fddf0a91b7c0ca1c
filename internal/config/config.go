package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	DocdeckAPIKey string `yaml:"api_key"`

	LLM      LLMConfig      `yaml:"llm"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Analysis AnalysisConfig `yaml:"analysis"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LLMConfig selects and parameterizes the text-generation provider.
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // openai, eino, gemini, anthropic
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	StatsWindow     time.Duration `yaml:"stats_window"`
}

type ChunkingConfig struct {
	MaxTokens int    `yaml:"max_tokens"`
	Tokenizer string `yaml:"tokenizer"` // tiktoken or estimate
}

type AnalysisConfig struct {
	Variant           string        `yaml:"variant"`
	Parallelism       int           `yaml:"parallelism"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
	MaxRetries        int           `yaml:"max_retries"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	MetricsPolicy     string        `yaml:"metrics_policy"` // regex or json
}

const (
	defaultPort            = "8090"
	defaultProvider        = "openai"
	defaultModel           = "gpt-3.5-turbo"
	defaultTemperature     = 0.7
	unsetTemperature       = -1
	defaultMaxOutputTokens = 2000
	defaultMaxTokens       = 14000
	defaultMaxUploadBytes  = 52428800 // 50MB
)

// Load reads configuration from environment variables.
func Load() Config {
	cfg := unset()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg
}

// LoadFile reads a YAML file and then applies environment overrides.
// An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	cfg := unset()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// unset marks fields whose zero value is a legal setting, so defaults apply
// only when nothing set them.
func unset() Config {
	return Config{LLM: LLMConfig{Temperature: unsetTemperature}}
}

func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DocdeckAPIKey = envOr("DOCDECK_API_KEY", cfg.DocdeckAPIKey)

	cfg.LLM.Provider = strings.ToLower(envOr("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = envOr("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = envOr("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Temperature = envFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxOutputTokens = envInt("LLM_MAX_OUTPUT_TOKENS", cfg.LLM.MaxOutputTokens)
	cfg.LLM.Timeout = envDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.StatsWindow = envDuration("LLM_STATS_WINDOW", cfg.LLM.StatsWindow)

	cfg.Chunking.MaxTokens = envInt("CHUNK_MAX_TOKENS", cfg.Chunking.MaxTokens)
	cfg.Chunking.Tokenizer = envOr("TOKENIZER", cfg.Chunking.Tokenizer)

	cfg.Analysis.Variant = envOr("ANALYSIS_VARIANT", cfg.Analysis.Variant)
	cfg.Analysis.Parallelism = envInt("ANALYSIS_PARALLELISM", cfg.Analysis.Parallelism)
	cfg.Analysis.RequestsPerMinute = envFloat("ANALYSIS_RPM", cfg.Analysis.RequestsPerMinute)
	cfg.Analysis.MaxRetries = envInt("ANALYSIS_MAX_RETRIES", cfg.Analysis.MaxRetries)
	cfg.Analysis.CacheSize = envInt("ANALYSIS_CACHE_SIZE", cfg.Analysis.CacheSize)
	cfg.Analysis.CacheTTL = envDuration("ANALYSIS_CACHE_TTL", cfg.Analysis.CacheTTL)
	cfg.Analysis.MetricsPolicy = strings.ToLower(envOr("METRICS_POLICY", cfg.Analysis.MetricsPolicy))

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)

	// Provider-specific key, unless one was set explicitly.
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(providerKeyEnv(cfg.LLM.Provider))
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultProvider
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv(providerKeyEnv(defaultProvider))
		}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel
	}
	if cfg.LLM.Temperature < 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
	if cfg.LLM.MaxOutputTokens <= 0 {
		cfg.LLM.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.LLM.StatsWindow <= 0 {
		cfg.LLM.StatsWindow = time.Hour
	}
	if cfg.Chunking.MaxTokens <= 0 {
		cfg.Chunking.MaxTokens = defaultMaxTokens
	}
	if cfg.Chunking.Tokenizer == "" {
		cfg.Chunking.Tokenizer = "tiktoken"
	}
	if cfg.Analysis.Variant == "" {
		cfg.Analysis.Variant = "business"
	}
	if cfg.Analysis.Parallelism <= 0 {
		cfg.Analysis.Parallelism = 1
	}
	if cfg.Analysis.RequestsPerMinute < 0 {
		cfg.Analysis.RequestsPerMinute = 0
	}
	if cfg.Analysis.MaxRetries < 0 {
		cfg.Analysis.MaxRetries = 0
	}
	if cfg.Analysis.CacheSize <= 0 {
		cfg.Analysis.CacheSize = 256
	}
	if cfg.Analysis.CacheTTL <= 0 {
		cfg.Analysis.CacheTTL = 1 * time.Hour
	}
	if cfg.Analysis.MetricsPolicy == "" {
		cfg.Analysis.MetricsPolicy = "regex"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

// ValidateLLM checks what a single analysis run needs.
func (c Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "openai", "eino", "gemini", "anthropic":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%s is required for provider %s", providerKeyEnv(c.LLM.Provider), c.LLM.Provider)
	}
	switch c.Chunking.Tokenizer {
	case "tiktoken", "estimate":
	default:
		return fmt.Errorf("unknown TOKENIZER %q", c.Chunking.Tokenizer)
	}
	switch c.Analysis.MetricsPolicy {
	case "regex", "json":
	default:
		return fmt.Errorf("unknown METRICS_POLICY %q", c.Analysis.MetricsPolicy)
	}
	return nil
}

// ValidateServer checks what the HTTP service needs.
func (c Config) ValidateServer() error {
	if c.DocdeckAPIKey == "" {
		return fmt.Errorf("DOCDECK_API_KEY is required")
	}
	return c.ValidateLLM()
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
