package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfigBudgets(t *testing.T) {
	cfg := DefaultPipelineConfig()

	total := 0
	for _, budget := range cfg.StepBudgets {
		total += budget
	}
	assert.Equal(t, cfg.TotalTokenBudget, total, "step budgets distribute the total")
	assert.Equal(t, 2500, cfg.StepBudgets["response_generation"], "response generation gets the largest share")
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &PipelineConfig{RetrievalLimit: 3, StepBudgets: map[string]int{"privacy_check": 100}}
	cfg.Normalize()

	assert.Equal(t, 3, cfg.RetrievalLimit)
	assert.Equal(t, 100, cfg.StepBudgets["privacy_check"])
	assert.Equal(t, 2500, cfg.StepBudgets["response_generation"])
	assert.Equal(t, 5000, cfg.TotalTokenBudget)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 0.95, cfg.DuplicateThreshold)
	assert.NotEmpty(t, cfg.Persona)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_PROVIDER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test-recollect.db")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("ASSISTANT_PERSONA", "You are a test assistant.")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Provider)
	assert.Equal(t, "/tmp/test-recollect.db", cfg.Store.Config["db_path"])
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.LLM.Model)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	require.NotNil(t, cfg.Pipeline)
	assert.Equal(t, "You are a test assistant.", cfg.Pipeline.Persona)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"llm": {"provider": "mock"},
		"embedder": {"provider": "mock", "dimensions": 64},
		"store": {"provider": "sqlite", "config": {"db_path": "./x.db"}},
		"pipeline": {"retrieval_limit": 7}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 64, cfg.Embedder.Dimensions)
	assert.Equal(t, "./x.db", cfg.Store.Config["db_path"])
	require.NotNil(t, cfg.Pipeline)
	assert.Equal(t, 7, cfg.Pipeline.RetrievalLimit)
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		LLM:      LLMConfig{Provider: "mock"},
		Embedder: EmbedderConfig{Provider: "mock"},
		Store:    StoreConfig{Provider: "sqlite"},
	}
	assert.NoError(t, valid.Validate())

	invalid := &Config{LLM: LLMConfig{Provider: "mock"}}
	assert.ErrorIs(t, invalid.Validate(), ErrInvalidConfig)
}

func TestPrivacyRegimeValid(t *testing.T) {
	assert.True(t, RegimeNormal.Valid())
	assert.True(t, RegimeIncognito.Valid())
	assert.True(t, RegimePauseRetention.Valid())
	assert.False(t, PrivacyRegime("stealth").Valid())
	assert.False(t, PrivacyRegime("").Valid())
}
