package recollect

import (
	"fmt"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/embedder"
	mockEmbedder "github.com/recollect-ai/recollect-go/pkg/embedder/mock"
	openaiEmbedder "github.com/recollect-ai/recollect-go/pkg/embedder/openai"
	"github.com/recollect-ai/recollect-go/pkg/llm"
	anthropicLLM "github.com/recollect-ai/recollect-go/pkg/llm/anthropic"
	mockLLM "github.com/recollect-ai/recollect-go/pkg/llm/mock"
	openaiLLM "github.com/recollect-ai/recollect-go/pkg/llm/openai"
	"github.com/recollect-ai/recollect-go/pkg/store"
	memoryStore "github.com/recollect-ai/recollect-go/pkg/store/memory"
	mysqlStore "github.com/recollect-ai/recollect-go/pkg/store/mysql"
	postgresStore "github.com/recollect-ai/recollect-go/pkg/store/postgres"
	sqliteStore "github.com/recollect-ai/recollect-go/pkg/store/sqlite"
)

// initStore creates the relational store from configuration.
//
// Supported providers: sqlite, postgres, mysql, memory.
func initStore(cfg core.StoreConfig) (store.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: getString(cfg.Config, "db_path", "./recollect.db"),
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     getString(cfg.Config, "host", "localhost"),
			Port:     getInt(cfg.Config, "port", 5432),
			User:     getString(cfg.Config, "user", "postgres"),
			Password: getString(cfg.Config, "password", ""),
			DBName:   getString(cfg.Config, "db_name", "recollect"),
			SSLMode:  getString(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     getString(cfg.Config, "host", "127.0.0.1"),
			Port:     getInt(cfg.Config, "port", 3306),
			User:     getString(cfg.Config, "user", "root"),
			Password: getString(cfg.Config, "password", ""),
			DBName:   getString(cfg.Config, "db_name", "recollect"),
		})
	case "memory":
		return memoryStore.NewClient(), nil
	default:
		return nil, core.NewPipelineError("initStore",
			fmt.Errorf("%w: unsupported store provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// initLLM creates the LLM provider from configuration.
//
// Supported providers: openai, anthropic, mock.
func initLLM(cfg core.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "anthropic":
		return anthropicLLM.NewClient(&anthropicLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "mock":
		return mockLLM.New(), nil
	default:
		return nil, core.NewPipelineError("initLLM",
			fmt.Errorf("%w: unsupported LLM provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// initEmbedder creates the embedding provider from configuration.
//
// Supported providers: openai, mock.
func initEmbedder(cfg core.EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "mock":
		return mockEmbedder.New(cfg.Dimensions), nil
	default:
		return nil, core.NewPipelineError("initEmbedder",
			fmt.Errorf("%w: unsupported embedding provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

func getString(config map[string]interface{}, key, fallback string) string {
	if value, ok := config[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(config map[string]interface{}, key string, fallback int) int {
	switch value := config[key].(type) {
	case int:
		return value
	case float64:
		// JSON numbers decode as float64.
		return int(value)
	default:
		return fallback
	}
}
