package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:   HTTPConfig{Port: 8080},
		Store:  StoreConfig{Driver: "redis", Addrs: []string{"localhost:6379"}},
		Vector: VectorConfig{DistanceStrategy: "EUCLIDEAN"},
	}
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding = EmbeddingConfig{
		Providers: map[string]ProviderConfig{
			"nebius": {
				Kind:    "openai",
				APIKey:  "test-key",
				BaseURL: "https://api.example.com/v1/",
				Budget: BudgetConfig{
					DailyTokenLimit: 1000000,
					Action:          "invalid_action",
				},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.providers.nebius.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = EmbeddingConfig{
				Providers: map[string]ProviderConfig{
					"nebius": {
						Kind:   "openai",
						APIKey: "test-key",
						Budget: BudgetConfig{Action: action},
					},
				},
			}

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Store(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{"memory", StoreConfig{Driver: "memory"}, false},
		{"bigquery", StoreConfig{Driver: "bigquery", Project: "p"}, false},
		{"bigquery without project", StoreConfig{Driver: "bigquery"}, true},
		{"valkey without addrs", StoreConfig{Driver: "valkey"}, true},
		{"unknown driver", StoreConfig{Driver: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store = tt.store
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DistanceStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Vector.DistanceStrategy = "manhattan"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown distance strategy")
	}
	cfg.Vector.DistanceStrategy = "cosine"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("cosine rejected: %v", err)
	}
}

func TestValidate_FilterFields(t *testing.T) {
	tests := []struct {
		name    string
		field   FilterField
		wantErr bool
	}{
		{"numeric", FilterField{Name: "len", Type: "numeric"}, false},
		{"tag", FilterField{Name: "color", Type: "tag"}, false},
		{"bad type", FilterField{Name: "len", Type: "vector"}, true},
		{"bad name", FilterField{Name: "1len", Type: "numeric"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Vector.FilterFields = []FilterField{tt.field}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Providers(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderConfig
		wantErr  bool
	}{
		{"vertexai", ProviderConfig{Kind: "vertexai", Project: "p"}, false},
		{"vertexai without project", ProviderConfig{Kind: "vertexai"}, true},
		{"gemini without key", ProviderConfig{Kind: "gemini"}, true},
		{"openai local endpoint", ProviderConfig{Kind: "openai", BaseURL: "http://localhost:11434/v1"}, false},
		{"unknown kind", ProviderConfig{Kind: "cohere", APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = EmbeddingConfig{
				Provider:  "main",
				Providers: map[string]ProviderConfig{"main": tt.provider},
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_UndefinedProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "missing"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for undefined provider")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		Store: StoreConfig{Project: "proj"},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{"google": {Kind: "vertexai"}},
		},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected Driver=memory, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Location != "US" {
		t.Errorf("expected Location=US, got %q", cfg.Store.Location)
	}
	if cfg.Store.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Store.ReadinessTimeout)
	}
	if cfg.Vector.DistanceStrategy != "EUCLIDEAN" {
		t.Errorf("expected DistanceStrategy=EUCLIDEAN, got %q", cfg.Vector.DistanceStrategy)
	}
	if cfg.Vector.MaxBatchSize != 250 {
		t.Errorf("expected MaxBatchSize=250, got %d", cfg.Vector.MaxBatchSize)
	}
	if cfg.Vector.MinIndexRows != 5000 {
		t.Errorf("expected MinIndexRows=5000, got %d", cfg.Vector.MinIndexRows)
	}
	if cfg.Embedding.QueryTaskType != "RETRIEVAL_QUERY" {
		t.Errorf("expected QueryTaskType=RETRIEVAL_QUERY, got %q", cfg.Embedding.QueryTaskType)
	}
	if cfg.Embedding.Retry.MaxAttempts != 4 {
		t.Errorf("expected Retry.MaxAttempts=4, got %d", cfg.Embedding.Retry.MaxAttempts)
	}
	p := cfg.Embedding.Providers["google"]
	if p.Project != "proj" || p.Location != "us-central1" {
		t.Errorf("vertexai provider defaults = %+v", p)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Store:  StoreConfig{Driver: "valkey", ReadinessTimeout: 15},
		Vector: VectorConfig{DistanceStrategy: "COSINE", MaxBatchSize: 50, MinIndexRows: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected Port=9000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Store.Location != "" {
		t.Errorf("expected no default location for valkey, got %q", cfg.Store.Location)
	}
	if cfg.Vector.DistanceStrategy != "COSINE" {
		t.Errorf("expected DistanceStrategy=COSINE, got %q", cfg.Vector.DistanceStrategy)
	}
	if cfg.Vector.MaxBatchSize != 50 {
		t.Errorf("expected MaxBatchSize=50, got %d", cfg.Vector.MaxBatchSize)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
store:
  driver: bigquery
  project: ${TEST_VECSTORE_PROJECT:-fallback}
vector:
  dataset: vector_demo
  table: ${TEST_VECSTORE_TABLE}
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("TEST_VECSTORE_TABLE", "fruits")

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Project != "fallback" {
		t.Errorf("expected default expansion, got %q", cfg.Store.Project)
	}
	if cfg.Vector.Table != "fruits" {
		t.Errorf("expected env expansion, got %q", cfg.Vector.Table)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("defaults not applied: port %d", cfg.HTTP.Port)
	}
}

func TestActiveProvider(t *testing.T) {
	e := EmbeddingConfig{}
	if _, ok := e.Active(); ok {
		t.Error("empty provider reported active")
	}
	e = EmbeddingConfig{Provider: "g", Providers: map[string]ProviderConfig{"g": {Kind: "gemini"}}}
	p, ok := e.Active()
	if !ok || p.Kind != "gemini" {
		t.Errorf("Active() = %+v, %v", p, ok)
	}
}
