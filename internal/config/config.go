package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docfeed worker configuration.
type Config struct {
	Ops       OpsConfig       `yaml:"ops"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Queue     QueueConfig     `yaml:"queue"`
	Batch     BatchConfig     `yaml:"batch"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// OpsConfig holds the operational HTTP listener settings (health, metrics).
type OpsConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig holds embedding settings. Provider selects the active
// entry in Providers.
type EmbeddingConfig struct {
	Provider   string                    `yaml:"provider"` // gemini (default) or openai
	Model      string                    `yaml:"model"`
	Dimensions int                       `yaml:"dimensions"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds embedding provider credentials and limits.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// IndexConfig holds vector index connection and collection settings.
type IndexConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	Distance   string `yaml:"distance"` // cosine (default), dot, euclid
}

// QueueConfig holds message queue transport settings.
//
// TLSVerify defaults to false: hostname/certificate verification is skipped
// for amqps URLs to accommodate managed brokers with self-signed or
// mismatched certificates. This weakens transport security and should be
// enabled per deployment where the broker presents a verifiable chain.
type QueueConfig struct {
	URL             string `yaml:"url"`
	Name            string `yaml:"name"`
	TLSVerify       bool   `yaml:"tls_verify"`
	RetryAttempts   int    `yaml:"retry_attempts"`
	RetryBackoffSec int    `yaml:"retry_backoff_sec"`
}

// BatchConfig holds the startup directory scan settings.
type BatchConfig struct {
	RootDir    string   `yaml:"root_dir"`
	Extensions []string `yaml:"extensions"`
}

// ChunkingConfig holds the chunk profiles for the two ingestion paths.
type ChunkingConfig struct {
	Batch     ChunkProfile `yaml:"batch"`
	Streaming ChunkProfile `yaml:"streaming"`
}

// ChunkProfile holds one chunk size/overlap pair, in runes.
type ChunkProfile struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// DatabaseConfig holds the optional key-value store used for budget
// persistence. Empty addrs disables persistence (in-memory counters only).
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Ops.Port <= 0 {
		c.Ops.Port = 9090
	}
	if c.Ops.ReadTimeoutSec <= 0 {
		c.Ops.ReadTimeoutSec = 10
	}
	if c.Ops.WriteTimeoutSec <= 0 {
		c.Ops.WriteTimeoutSec = 10
	}
	if c.Ops.ShutdownSec <= 0 {
		c.Ops.ShutdownSec = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-004"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Index.Host == "" {
		c.Index.Host = "localhost"
	}
	if c.Index.Port <= 0 {
		c.Index.Port = 6334
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "chatbot-docs"
	}
	if c.Index.Distance == "" {
		c.Index.Distance = "cosine"
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "embedding_tasks"
	}
	if c.Queue.RetryAttempts <= 0 {
		c.Queue.RetryAttempts = 3
	}
	if c.Queue.RetryBackoffSec <= 0 {
		c.Queue.RetryBackoffSec = 5
	}
	if c.Batch.RootDir == "" {
		c.Batch.RootDir = "data/docs"
	}
	if len(c.Batch.Extensions) == 0 {
		c.Batch.Extensions = []string{".md", ".txt"}
	}
	if c.Chunking.Batch.Size <= 0 {
		c.Chunking.Batch = ChunkProfile{Size: 1000, Overlap: 0}
	}
	if c.Chunking.Streaming.Size <= 0 {
		c.Chunking.Streaming = ChunkProfile{Size: 1000, Overlap: 200}
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness. Violations are fatal
// at startup, never per-message.
func (c *Config) Validate() error {
	if c.Ops.Port <= 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be between 1 and 65535, got %d", c.Ops.Port)
	}

	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("embedding.provider must be \"gemini\" or \"openai\", got %q", c.Embedding.Provider)
	}
	active, ok := c.Embedding.Providers[c.Embedding.Provider]
	if !ok {
		return fmt.Errorf("embedding.providers.%s is required for the active provider", c.Embedding.Provider)
	}
	if active.APIKey == "" && active.BaseURL == "" {
		return fmt.Errorf("embedding.providers.%s.api_key is required", c.Embedding.Provider)
	}
	for name, p := range c.Embedding.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}

	switch c.Index.Distance {
	case "cosine", "dot", "euclid":
	default:
		return fmt.Errorf("index.distance must be \"cosine\", \"dot\" or \"euclid\", got %q", c.Index.Distance)
	}

	if c.Queue.URL == "" {
		return fmt.Errorf("queue.url is required")
	}
	if !strings.HasPrefix(c.Queue.URL, "amqp://") && !strings.HasPrefix(c.Queue.URL, "amqps://") {
		return fmt.Errorf("queue.url must use the amqp:// or amqps:// scheme")
	}

	if err := validateProfile("chunking.batch", c.Chunking.Batch); err != nil {
		return err
	}
	if err := validateProfile("chunking.streaming", c.Chunking.Streaming); err != nil {
		return err
	}

	return nil
}

func validateProfile(name string, p ChunkProfile) error {
	if p.Size <= 0 {
		return fmt.Errorf("%s.size must be positive, got %d", name, p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return fmt.Errorf("%s.overlap must be in [0, size), got %d for size %d", name, p.Overlap, p.Size)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
