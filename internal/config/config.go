package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

// Config holds the vecstore configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects and connects the vector backend.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // bigquery, redis, valkey, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Project          string   `yaml:"project"`
	Location         string   `yaml:"location"`
	CredentialsFile  string   `yaml:"credentials_file"`
	Endpoint         string   `yaml:"endpoint"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// VectorConfig holds the target table and ingestion settings.
type VectorConfig struct {
	Dataset          string `yaml:"dataset"`
	Table            string `yaml:"table"`
	DistanceStrategy string `yaml:"distance_strategy"` // EUCLIDEAN (default), COSINE, DOT_PRODUCT
	MaxBatchSize     int    `yaml:"max_batch_size"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
	MinIndexRows     int64  `yaml:"min_index_rows"`
	IVFNumLists      int    `yaml:"ivf_num_lists"` // 0 lets the backend choose
	// FilterFields declares metadata keys indexed up front. Redis and Valkey
	// also index scalar keys on first write.
	FilterFields []FilterField `yaml:"filter_fields"`
}

// FilterField is a filterable metadata key.
type FilterField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // tag, numeric
}

// EmbeddingConfig holds embedding settings. Provider names an entry of Providers;
// empty disables embedding (vector-only use).
type EmbeddingConfig struct {
	Provider            string                    `yaml:"provider"`
	Model               string                    `yaml:"model"`
	Dimensions          int                       `yaml:"dimensions"`
	DocumentTaskType    string                    `yaml:"document_task_type"`
	QueryTaskType       string                    `yaml:"query_task_type"`
	DocumentInstruction string                    `yaml:"document_instruction"`
	QueryInstruction    string                    `yaml:"query_instruction"`
	CacheTTLHours       int                       `yaml:"cache_ttl_hours"` // 0 disables the cache
	Retry               RetryConfig               `yaml:"retry"`
	Providers           map[string]ProviderConfig `yaml:"providers"`
}

// RetryConfig holds provider retry settings.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	Kind              string       `yaml:"kind"` // vertexai, gemini, openai
	APIKey            string       `yaml:"api_key"`
	BaseURL           string       `yaml:"base_url"`
	Project           string       `yaml:"project"`
	Location          string       `yaml:"location"`
	RequestsPerSecond float64      `yaml:"requests_per_second"`
	Budget            BudgetConfig `yaml:"budget"`
}

// Active returns the selected provider, or false when embedding is disabled.
func (e EmbeddingConfig) Active() (ProviderConfig, bool) {
	if e.Provider == "" {
		return ProviderConfig{}, false
	}
	p, ok := e.Providers[e.Provider]
	return p, ok
}

// Load reads configuration from a YAML file by environment name (local, prod).
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
	vc := domain.DefaultVectorConfig()

	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Location == "" && c.Store.Driver != "redis" && c.Store.Driver != "valkey" {
		c.Store.Location = vc.DefaultDatasetRegion
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Vector.DistanceStrategy == "" {
		c.Vector.DistanceStrategy = vc.DistanceStrategy
	}
	if c.Vector.MaxBatchSize <= 0 {
		c.Vector.MaxBatchSize = vc.MaxBatchSize
	}
	if c.Vector.EmbedConcurrency <= 0 {
		c.Vector.EmbedConcurrency = vc.EmbedConcurrency
	}
	if c.Vector.MinIndexRows <= 0 {
		c.Vector.MinIndexRows = int64(vc.MinIndexRows)
	}
	if c.Embedding.DocumentTaskType == "" {
		c.Embedding.DocumentTaskType = vc.DocumentTaskType
	}
	if c.Embedding.QueryTaskType == "" {
		c.Embedding.QueryTaskType = vc.QueryTaskType
	}
	if c.Embedding.Retry.MaxAttempts <= 0 {
		c.Embedding.Retry.MaxAttempts = 4
	}
	if c.Embedding.Retry.BaseDelayMs <= 0 {
		c.Embedding.Retry.BaseDelayMs = 500
	}
	if c.Embedding.Retry.MaxDelayMs <= 0 {
		c.Embedding.Retry.MaxDelayMs = 10000
	}
	for name, p := range c.Embedding.Providers {
		if p.Kind == "vertexai" && p.Project == "" {
			p.Project = c.Store.Project
		}
		if p.Kind == "vertexai" && p.Location == "" {
			p.Location = "us-central1"
		}
		c.Embedding.Providers[name] = p
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "memory":
	case "bigquery":
		if c.Store.Project == "" {
			return fmt.Errorf("store.project is required for bigquery")
		}
	case "redis", "valkey":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be bigquery, redis, valkey or memory, got %q", c.Store.Driver)
	}
	if _, err := distance.Parse(c.Vector.DistanceStrategy); err != nil {
		return fmt.Errorf("vector.distance_strategy: %w", err)
	}
	for i, f := range c.Vector.FilterFields {
		if !filter.ValidKey(f.Name) {
			return fmt.Errorf("vector.filter_fields[%d]: invalid name %q", i, f.Name)
		}
		if f.Type != "tag" && f.Type != "numeric" {
			return fmt.Errorf("vector.filter_fields[%d]: type must be tag or numeric, got %q", i, f.Type)
		}
	}
	if c.Embedding.Provider != "" {
		if _, ok := c.Embedding.Providers[c.Embedding.Provider]; !ok {
			return fmt.Errorf("embedding.provider %q is not defined in embedding.providers", c.Embedding.Provider)
		}
	}
	for name, p := range c.Embedding.Providers {
		if err := p.validate(name, name == c.Embedding.Provider); err != nil {
			return err
		}
	}
	return nil
}

// validate checks kind and budget; credentials only matter for the active provider.
func (p ProviderConfig) validate(name string, active bool) error {
	switch p.Kind {
	case "vertexai":
		if active && p.Project == "" {
			return fmt.Errorf("embedding.providers.%s.project is required for vertexai", name)
		}
	case "gemini", "openai":
		if active && p.APIKey == "" && p.BaseURL == "" {
			return fmt.Errorf("embedding.providers.%s.api_key is required for %s", name, p.Kind)
		}
	default:
		return fmt.Errorf("embedding.providers.%s.kind must be vertexai, gemini or openai, got %q", name, p.Kind)
	}
	switch p.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
			name, p.Budget.Action,
		)
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
