package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect-go/pkg/core"
	embmock "github.com/recollect-ai/recollect-go/pkg/embedder/mock"
	llmmock "github.com/recollect-ai/recollect-go/pkg/llm/mock"
	"github.com/recollect-ai/recollect-go/pkg/respond"
	memstore "github.com/recollect-ai/recollect-go/pkg/store/memory"
	"github.com/recollect-ai/recollect-go/pkg/vector/chromem"
)

func newTestOrchestrator(t *testing.T, cfg *core.PipelineConfig, provider *llmmock.Provider) (*Orchestrator, *memstore.Client) {
	t.Helper()

	if provider == nil {
		provider = &llmmock.Provider{Response: "Sounds great!"}
	}
	st := memstore.NewClient()
	index := chromem.New(embmock.New(0))

	orchestrator, err := New(cfg, st, index, provider)
	require.NoError(t, err)
	t.Cleanup(func() { _ = orchestrator.Close() })

	return orchestrator, st
}

func turnInput(regime core.PrivacyRegime, message string) *TurnInput {
	return &TurnInput{
		SessionID:   "session-1",
		ProfileID:   "personal",
		PrivacyMode: regime,
		UserMessage: message,
	}
}

func TestRunTurnNormalRegime(t *testing.T) {
	orchestrator, st := newTestOrchestrator(t, nil, nil)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeNormal, "I love hiking in the mountains."))
	require.NoError(t, err)

	assert.False(t, result.Rejected)
	assert.Equal(t, "Sounds great!", result.Reply)
	assert.NotEmpty(t, result.TurnID)

	for _, name := range []string{StepPrivacyCheck, StepMemoryRetrieval, StepResponseGeneration, StepMemoryExtraction, StepAnalysis} {
		step := result.StepFor(name)
		require.NotNil(t, step, name)
		assert.True(t, step.Success, name)
	}
	assert.False(t, result.StepFor(StepMemoryRetrieval).Skipped)
	assert.False(t, result.StepFor(StepMemoryExtraction).Skipped)

	// The preference statement becomes a memory.
	require.NotEmpty(t, result.MemoryIDs)
	memory, err := st.GetMemory(context.Background(), "personal", result.MemoryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, core.MemoryPreference, memory.Type)

	// Both halves of the turn are persisted.
	count, err := st.CountMessages(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunTurnIncognitoSkipsMemorySteps(t *testing.T) {
	orchestrator, st := newTestOrchestrator(t, nil, nil)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeIncognito, "I love hiking in the mountains."))
	require.NoError(t, err)

	assert.False(t, result.Rejected)
	assert.Equal(t, "Sounds great!", result.Reply)

	retrieval := result.StepFor(StepMemoryRetrieval)
	require.NotNil(t, retrieval)
	assert.True(t, retrieval.Skipped)
	assert.Equal(t, SkipReasonIncognito, retrieval.SkipReason)

	extraction := result.StepFor(StepMemoryExtraction)
	require.NotNil(t, extraction)
	assert.True(t, extraction.Skipped)
	assert.Equal(t, SkipReasonIncognito, extraction.SkipReason)

	analysis := result.StepFor(StepAnalysis)
	require.NotNil(t, analysis)
	assert.True(t, analysis.Skipped)

	// Nothing is stored in incognito.
	assert.Empty(t, result.MemoryIDs)
	count, err := st.CountMessages(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	memories, err := st.ListMemories(context.Background(), "personal", nil)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestRunTurnPauseRetention(t *testing.T) {
	orchestrator, st := newTestOrchestrator(t, nil, nil)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimePauseRetention, "I love hiking in the mountains."))
	require.NoError(t, err)

	retrieval := result.StepFor(StepMemoryRetrieval)
	require.NotNil(t, retrieval)
	assert.False(t, retrieval.Skipped)

	extraction := result.StepFor(StepMemoryExtraction)
	require.NotNil(t, extraction)
	assert.True(t, extraction.Skipped)
	assert.Equal(t, SkipReasonPaused, extraction.SkipReason)

	assert.Empty(t, result.MemoryIDs)
	memories, err := st.ListMemories(context.Background(), "personal", nil)
	require.NoError(t, err)
	assert.Empty(t, memories)

	// Chat history is still recorded while retention is paused.
	count, err := st.CountMessages(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunTurnPrivacyBlockShortCircuits(t *testing.T) {
	provider := &llmmock.Provider{Response: "should never be called"}
	orchestrator, st := newTestOrchestrator(t, nil, provider)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeIncognito, "My card is 4111-1111-1111-1111"))
	require.NoError(t, err)

	assert.True(t, result.Rejected)
	assert.NotEmpty(t, result.RejectionReason)
	assert.NotEmpty(t, result.Reply)
	assert.NotContains(t, result.Reply, "4111")

	// Only the privacy check ran, and its envelope carries the violation.
	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, StepPrivacyCheck, step.Step)
	assert.False(t, step.Success)
	assert.Equal(t, core.CodePrivacyViolation, step.ErrorCode)
	assert.Zero(t, provider.CallCount())

	count, err := st.CountMessages(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunTurnFallbackReplyOnProviderFailure(t *testing.T) {
	provider := &llmmock.Provider{Err: errors.New("model down")}
	cfg := &core.PipelineConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}
	orchestrator, _ := newTestOrchestrator(t, cfg, provider)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeNormal, "I love hiking in the mountains."))
	require.NoError(t, err)

	assert.Equal(t, respond.Fallback(core.RegimeNormal), result.Reply)
	assert.NotContains(t, result.Reply, "model down")
	assert.Equal(t, 2, provider.CallCount())

	step := result.StepFor(StepResponseGeneration)
	require.NotNil(t, step)
	assert.False(t, step.Success)
	assert.Equal(t, core.CodeExternalService, step.ErrorCode)

	// Extraction still commits after the fallback reply.
	extraction := result.StepFor(StepMemoryExtraction)
	require.NotNil(t, extraction)
	assert.True(t, extraction.Success)
	assert.NotEmpty(t, result.MemoryIDs)
}

func TestRunTurnDuplicateIncrementsMention(t *testing.T) {
	orchestrator, st := newTestOrchestrator(t, nil, nil)
	input := turnInput(core.RegimeNormal, "I love hiking in the mountains.")

	first, err := orchestrator.RunTurn(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, first.MemoryIDs, 1)

	second, err := orchestrator.RunTurn(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, second.MemoryIDs)

	memory, err := st.GetMemory(context.Background(), "personal", first.MemoryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, memory.MentionCount)
}

func TestRunTurnAnalysisPeriodic(t *testing.T) {
	cfg := &core.PipelineConfig{AnalysisInterval: 2}
	orchestrator, _ := newTestOrchestrator(t, cfg, nil)
	input := turnInput(core.RegimeNormal, "I love hiking in the mountains.")

	first, err := orchestrator.RunTurn(context.Background(), input)
	require.NoError(t, err)
	step := first.StepFor(StepAnalysis)
	require.NotNil(t, step)
	assert.True(t, step.Skipped)
	assert.Equal(t, SkipReasonNotDue, step.SkipReason)

	second, err := orchestrator.RunTurn(context.Background(), input)
	require.NoError(t, err)
	step = second.StepFor(StepAnalysis)
	require.NotNil(t, step)
	assert.False(t, step.Skipped)
	assert.True(t, step.Success)
	assert.Contains(t, step.Data, "sentiment")
}

func TestRunTurnBudgetWarning(t *testing.T) {
	cfg := &core.PipelineConfig{StepBudgets: map[string]int{StepPrivacyCheck: 1}}
	orchestrator, _ := newTestOrchestrator(t, cfg, nil)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeNormal, "I love hiking in the mountains, especially long alpine routes."))
	require.NoError(t, err)

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "privacy_check") && strings.Contains(warning, "token budget") {
			found = true
		}
	}
	assert.True(t, found, "expected a privacy_check budget warning, got %v", result.Warnings)

	// The step itself still succeeded; the overrun only tags its envelope.
	step := result.StepFor(StepPrivacyCheck)
	assert.True(t, step.Success)
	assert.Equal(t, core.CodeBudgetExceeded, step.ErrorCode)
}

func TestRunTurnValidation(t *testing.T) {
	orchestrator, _ := newTestOrchestrator(t, nil, nil)

	tests := []struct {
		name  string
		input *TurnInput
	}{
		{"missing session", &TurnInput{ProfileID: "p", UserMessage: "hi", PrivacyMode: core.RegimeNormal}},
		{"missing profile", &TurnInput{SessionID: "s", UserMessage: "hi", PrivacyMode: core.RegimeNormal}},
		{"missing message", &TurnInput{SessionID: "s", ProfileID: "p", PrivacyMode: core.RegimeNormal}},
		{"bad regime", &TurnInput{SessionID: "s", ProfileID: "p", UserMessage: "hi", PrivacyMode: "stealth"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orchestrator.RunTurn(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestRunTurnRetrievalSurfacesStoredMemories(t *testing.T) {
	provider := &llmmock.Provider{Response: "You mentioned loving hiking!"}
	orchestrator, _ := newTestOrchestrator(t, nil, provider)

	_, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeNormal, "I love hiking in the mountains."))
	require.NoError(t, err)

	result, err := orchestrator.RunTurn(context.Background(), turnInput(core.RegimeNormal, "any hiking ideas for the weekend"))
	require.NoError(t, err)

	step := result.StepFor(StepMemoryRetrieval)
	require.NotNil(t, step)
	assert.True(t, step.Success)
	assert.Equal(t, 1, step.Data["memories"])
}
