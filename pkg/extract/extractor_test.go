package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect-go/pkg/core"
	llmmock "github.com/recollect-ai/recollect-go/pkg/llm/mock"
)

func TestExtractClassifiesByIndicator(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType core.MemoryType
	}{
		{"preference", "I love hiking in the mountains.", core.MemoryPreference},
		{"fact", "I work as a software engineer.", core.MemoryFact},
		{"event", "Yesterday we went to the opera.", core.MemoryEvent},
		{"relationship", "My sister Emma lives in Berlin.", core.MemoryRelationship},
	}

	extractor := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := extractor.Extract(context.Background(), tt.text)
			require.Len(t, candidates, 1)
			assert.Equal(t, tt.wantType, candidates[0].Type)
			assert.GreaterOrEqual(t, candidates[0].ImportanceScore, 0.0)
			assert.LessOrEqual(t, candidates[0].ImportanceScore, 1.0)
		})
	}
}

func TestExtractRelationshipBeatsPreference(t *testing.T) {
	extractor := New()

	candidates := extractor.Extract(context.Background(), "I like visiting my sister on weekends.")
	require.Len(t, candidates, 1)
	assert.Equal(t, core.MemoryRelationship, candidates[0].Type)
}

func TestExtractSkipsQuestionsAndFiller(t *testing.T) {
	extractor := New()

	assert.Empty(t, extractor.Extract(context.Background(), "What time is it?"))
	assert.Empty(t, extractor.Extract(context.Background(), "Ok thanks."))
	assert.Empty(t, extractor.Extract(context.Background(), "The weather report says rain."))
}

func TestExtractPreferencesScoreHigherThanGenericStatements(t *testing.T) {
	extractor := New()

	preference := extractor.Extract(context.Background(), "I love strong black coffee.")
	generic := extractor.Extract(context.Background(), "I walked around for a while.")
	require.Len(t, preference, 1)
	require.Len(t, generic, 1)
	assert.Greater(t, preference[0].ImportanceScore, generic[0].ImportanceScore)
}

func TestExtractDeterministic(t *testing.T) {
	extractor := New()
	text := "I love hiking. My sister Emma visits often. Yesterday we went to the museum."

	first := extractor.Extract(context.Background(), text)
	second := extractor.Extract(context.Background(), text)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestExtractEntitiesAndTags(t *testing.T) {
	extractor := New()

	candidates := extractor.Extract(context.Background(), "My friend Sarah moved to Portland.")
	require.Len(t, candidates, 1)
	assert.ElementsMatch(t, []string{"Sarah", "Portland"}, candidates[0].Entities)
	assert.Contains(t, candidates[0].Tags, "relationship")
	assert.Contains(t, candidates[0].Tags, "sarah")
}

func TestConsolidateExactDuplicates(t *testing.T) {
	extractor := New()
	a := &Candidate{Content: "I love hiking in the mountains", Type: core.MemoryPreference, ImportanceScore: 0.7, Tags: []string{"preference"}}
	b := &Candidate{Content: "I love hiking in the mountains", Type: core.MemoryPreference, ImportanceScore: 0.7, Tags: []string{"preference"}}

	merged := extractor.Consolidate([]*Candidate{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, "I love hiking in the mountains", merged[0].Content)
	assert.Equal(t, 0.7, merged[0].ImportanceScore)
	assert.Equal(t, []string{"preference"}, merged[0].Tags)
}

func TestConsolidateMergesNearDuplicates(t *testing.T) {
	extractor := New()
	a := &Candidate{Content: "I love hiking in the mountains", ImportanceScore: 0.6, Tags: []string{"preference"}}
	b := &Candidate{Content: "I love hiking in the tall mountains every summer", ImportanceScore: 0.8, Tags: []string{"outdoors"}}

	merged := extractor.Consolidate([]*Candidate{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, "I love hiking in the tall mountains every summer", merged[0].Content)
	assert.Equal(t, 0.8, merged[0].ImportanceScore)
	assert.ElementsMatch(t, []string{"preference", "outdoors"}, merged[0].Tags)
}

func TestConsolidateKeepsDistinctCandidates(t *testing.T) {
	extractor := New()
	a := &Candidate{Content: "I love hiking in the mountains", ImportanceScore: 0.6}
	b := &Candidate{Content: "My sister Emma lives in Berlin", ImportanceScore: 0.6}

	merged := extractor.Consolidate([]*Candidate{a, b})
	assert.Len(t, merged, 2)
}

func TestExtractLLMPath(t *testing.T) {
	provider := &llmmock.Provider{
		Response: `{"content": "Prefers aisle seats on flights", "memory_type": "preference", "importance_score": 0.8, "tags": ["travel"]}
{"content": "Works at a design studio", "memory_type": "fact", "importance_score": 0.6}`,
	}
	extractor := NewWithLLM(provider)

	candidates := extractor.Extract(context.Background(), "I told you about my flight preferences.")
	require.Len(t, candidates, 2)
	assert.Equal(t, core.MemoryPreference, candidates[0].Type)
	assert.Equal(t, "Prefers aisle seats on flights", candidates[0].Content)
	assert.Equal(t, core.MemoryFact, candidates[1].Type)
}

func TestExtractLLMFailureFallsBackToRules(t *testing.T) {
	provider := &llmmock.Provider{Err: errors.New("provider down")}
	extractor := NewWithLLM(provider)

	candidates := extractor.Extract(context.Background(), "I love hiking in the mountains.")
	require.Len(t, candidates, 1)
	assert.Equal(t, core.MemoryPreference, candidates[0].Type)
}

func TestSharedWordRatio(t *testing.T) {
	assert.Equal(t, 1.0, sharedWordRatio("i love hiking", "I love hiking"))
	assert.Equal(t, 0.0, sharedWordRatio("completely different words", "nothing shared here"))
	assert.Greater(t, sharedWordRatio("i love hiking in the mountains", "i love hiking in the hills"), duplicateOverlap)
}
