// Package core provides the shared types, errors, and configuration for the
// Recollect memory pipeline.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the Recollect pipeline.
//
// It includes settings for:
//   - LLM provider (response generation, optional extraction assistance)
//   - Embedding provider (vector generation for the semantic index)
//   - Relational store (memories and chat messages)
//   - Pipeline behavior (budgets, retries, persona)
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4",
//	    },
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./recollect.db",
//	        },
//	    },
//	}
type Config struct {
	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Store contains relational store configuration.
	Store StoreConfig `json:"store"`

	// Pipeline contains orchestration configuration (nil uses defaults).
	Pipeline *PipelineConfig `json:"pipeline,omitempty"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, anthropic, mock
type LLMConfig struct {
	// Provider is the LLM provider name (openai, anthropic, mock).
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4", "claude-3-5-sonnet-latest").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, mock
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai, mock).
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors (e.g., 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// StoreConfig contains configuration for the relational store.
//
// Supported providers: sqlite, postgres, mysql
type StoreConfig struct {
	// Provider is the store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path
	// For PostgreSQL: host, port, user, password, db_name, ssl_mode
	// For MySQL: host, port, user, password, db_name
	Config map[string]interface{} `json:"config"`
}

// PipelineConfig contains configuration for the orchestrator.
type PipelineConfig struct {
	// TotalTokenBudget is the per-turn token budget shared by all steps.
	// Default: 5000.
	TotalTokenBudget int `json:"total_token_budget,omitempty"`

	// StepBudgets distributes the total budget per step. Response generation
	// receives the largest share. Missing entries use defaults.
	StepBudgets map[string]int `json:"step_budgets,omitempty"`

	// MaxRetries is the attempt count for retryable external failures.
	// Default: 3.
	MaxRetries int `json:"max_retries,omitempty"`

	// RetryBackoff is the base backoff between retries. Default: 200ms.
	RetryBackoff time.Duration `json:"retry_backoff,omitempty"`

	// StepTimeout bounds each external call. Default: 30s.
	StepTimeout time.Duration `json:"step_timeout,omitempty"`

	// RecencyHorizonDays is the age at which the recency component of the
	// relevance score reaches zero. Default: 30.
	RecencyHorizonDays int `json:"recency_horizon_days,omitempty"`

	// AnalysisInterval runs the session analyst every N turns. Default: 5.
	AnalysisInterval int `json:"analysis_interval,omitempty"`

	// RecentTurnWindow bounds how many prior messages enter the response
	// context. Default: 10.
	RecentTurnWindow int `json:"recent_turn_window,omitempty"`

	// RetrievalLimit is the maximum number of memories surfaced per turn.
	// Default: 5.
	RetrievalLimit int `json:"retrieval_limit,omitempty"`

	// DuplicateThreshold is the vector similarity above which an extraction
	// candidate is treated as a restatement of an existing memory.
	// Default: 0.95.
	DuplicateThreshold float64 `json:"duplicate_threshold,omitempty"`

	// Persona is the system persona prepended to every response context.
	Persona string `json:"persona,omitempty"`
}

// DefaultPipelineConfig returns the default orchestration configuration.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		TotalTokenBudget: 5000,
		StepBudgets: map[string]int{
			"privacy_check":       300,
			"memory_retrieval":    800,
			"response_generation": 2500,
			"memory_extraction":   900,
			"analysis":            500,
		},
		MaxRetries:         3,
		RetryBackoff:       200 * time.Millisecond,
		StepTimeout:        30 * time.Second,
		RecencyHorizonDays: 30,
		AnalysisInterval:   5,
		RecentTurnWindow:   10,
		RetrievalLimit:     5,
		DuplicateThreshold: 0.95,
		Persona:            "You are a helpful personal assistant with long-term memory of the user.",
	}
}

// Normalize fills unset pipeline fields with defaults.
func (p *PipelineConfig) Normalize() {
	def := DefaultPipelineConfig()
	if p.TotalTokenBudget == 0 {
		p.TotalTokenBudget = def.TotalTokenBudget
	}
	if p.StepBudgets == nil {
		p.StepBudgets = map[string]int{}
	}
	for step, budget := range def.StepBudgets {
		if _, ok := p.StepBudgets[step]; !ok {
			p.StepBudgets[step] = budget
		}
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = def.RetryBackoff
	}
	if p.StepTimeout == 0 {
		p.StepTimeout = def.StepTimeout
	}
	if p.RecencyHorizonDays == 0 {
		p.RecencyHorizonDays = def.RecencyHorizonDays
	}
	if p.AnalysisInterval == 0 {
		p.AnalysisInterval = def.AnalysisInterval
	}
	if p.RecentTurnWindow == 0 {
		p.RecentTurnWindow = def.RecentTurnWindow
	}
	if p.RetrievalLimit == 0 {
		p.RetrievalLimit = def.RetrievalLimit
	}
	if p.DuplicateThreshold == 0 {
		p.DuplicateThreshold = def.DuplicateThreshold
	}
	if p.Persona == "" {
		p.Persona = def.Persona
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - STORE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_DIMS
//   - ASSISTANT_PERSONA
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("STORE_PROVIDER", "sqlite")

	storeConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		storeConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./recollect.db"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storeConfig = map[string]interface{}{
			"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":     port,
			"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password": os.Getenv("POSTGRES_PASSWORD"),
			"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "recollect"),
			"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storeConfig = map[string]interface{}{
			"host":     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":     port,
			"user":     getEnvOrDefault("MYSQL_USER", "root"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"db_name":  getEnvOrDefault("MYSQL_DATABASE", "recollect"),
		}
	}

	llmProvider := getEnvOrDefault("LLM_PROVIDER", "openai")
	var llmBaseURL string
	var defaultModel string
	switch llmProvider {
	case "anthropic":
		llmBaseURL = os.Getenv("ANTHROPIC_BASE_URL")
		defaultModel = "claude-3-5-sonnet-latest"
	default:
		llmBaseURL = os.Getenv("LLM_BASE_URL")
		defaultModel = "gpt-4"
	}

	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))

	config := &Config{
		LLM: LLMConfig{
			Provider: llmProvider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
			BaseURL:  llmBaseURL,
		},
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		Store: StoreConfig{
			Provider: provider,
			Config:   storeConfig,
		},
	}

	if persona := os.Getenv("ASSISTANT_PERSONA"); persona != "" {
		config.Pipeline = &PipelineConfig{Persona: persona}
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPipelineError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewPipelineError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// Validate validates the configuration.
//
// Checks that all required provider fields are set.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.Provider == "" {
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	if c.Store.Provider == "" {
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search checks the current directory first, then up to 5 directory
// levels up, returning the first match.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
