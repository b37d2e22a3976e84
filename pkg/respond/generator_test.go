package respond

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/llm"
	llmmock "github.com/recollect-ai/recollect-go/pkg/llm/mock"
)

func TestGenerateReturnsProviderReply(t *testing.T) {
	provider := &llmmock.Provider{Response: "Happy to help with your trip!"}
	generator := New(provider, "")

	reply, err := generator.Generate(context.Background(), &Request{
		UserMessage: "Any ideas for the weekend?",
		Regime:      core.RegimeNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to help with your trip!", reply)
	assert.Equal(t, 1, provider.CallCount())
}

func TestGenerateFallbackOnProviderFailure(t *testing.T) {
	provider := &llmmock.Provider{Err: errors.New("model unavailable")}
	generator := New(provider, "")

	reply, err := generator.Generate(context.Background(), &Request{
		UserMessage: "hello",
		Regime:      core.RegimeIncognito,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExternalService)
	assert.Equal(t, Fallback(core.RegimeIncognito), reply)
	assert.NotContains(t, reply, "model unavailable")
}

func TestBuildMessagesOrder(t *testing.T) {
	generator := New(&llmmock.Provider{}, "You are a travel assistant.")

	now := time.Now()
	req := &Request{
		UserMessage: "where should I go next",
		Memories: []*core.RetrievalCandidate{
			{
				Memory:         &core.Memory{Content: "loves hiking", Type: core.MemoryPreference, CreatedAt: now},
				RelevanceScore: 0.73,
			},
		},
		RecentTurns: []*core.ChatMessage{
			{Role: "user", Content: "I was thinking about a vacation"},
			{Role: "assistant", Content: "Mountains or beach?"},
		},
		Regime: core.RegimeNormal,
	}

	messages := generator.BuildMessages(req)
	require.Len(t, messages, 5)

	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "You are a travel assistant.", messages[0].Content)

	assert.Equal(t, llm.RoleSystem, messages[1].Role)
	assert.Contains(t, messages[1].Content, "loves hiking")
	assert.Contains(t, messages[1].Content, "0.73")

	assert.Equal(t, llm.RoleUser, messages[2].Role)
	assert.Equal(t, llm.RoleAssistant, messages[3].Role)

	assert.Equal(t, llm.RoleUser, messages[4].Role)
	assert.Equal(t, "where should I go next", messages[4].Content)
}

func TestBuildMessagesWithoutMemories(t *testing.T) {
	generator := New(&llmmock.Provider{}, "")

	messages := generator.BuildMessages(&Request{UserMessage: "hi", Regime: core.RegimeIncognito})
	require.Len(t, messages, 2)
	assert.Equal(t, DefaultPersona, messages[0].Content)
	assert.Equal(t, "hi", messages[1].Content)
}

func TestFormatMemoriesGroupsByTypeInOrder(t *testing.T) {
	generator := New(&llmmock.Provider{}, "")
	now := time.Now()
	generator.now = func() time.Time { return now }

	memories := []*core.RetrievalCandidate{
		{Memory: &core.Memory{Content: "sister lives in Berlin", Type: core.MemoryRelationship, CreatedAt: now.Add(-48 * time.Hour)}, RelevanceScore: 0.6},
		{Memory: &core.Memory{Content: "works as an engineer", Type: core.MemoryFact, CreatedAt: now.Add(-30 * time.Minute)}, RelevanceScore: 0.5},
		{Memory: &core.Memory{Content: "loves jazz", Type: core.MemoryPreference, CreatedAt: now.Add(-3 * time.Hour)}, RelevanceScore: 0.7},
	}

	text := generator.formatMemories(memories)

	facts := strings.Index(text, "Facts:")
	prefs := strings.Index(text, "Preferences:")
	rels := strings.Index(text, "Relationships:")
	require.NotEqual(t, -1, facts)
	require.NotEqual(t, -1, prefs)
	require.NotEqual(t, -1, rels)
	assert.Less(t, facts, prefs)
	assert.Less(t, prefs, rels)

	assert.Contains(t, text, "just now")
	assert.Contains(t, text, "3 hours ago")
	assert.Contains(t, text, "2 days ago")
}

func TestFallbackUnknownRegime(t *testing.T) {
	assert.Equal(t, Fallback(core.RegimeNormal), Fallback(core.PrivacyRegime("other")))
}
