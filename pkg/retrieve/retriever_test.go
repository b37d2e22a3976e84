package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect-go/pkg/core"
	embmock "github.com/recollect-ai/recollect-go/pkg/embedder/mock"
	"github.com/recollect-ai/recollect-go/pkg/rank"
	memstore "github.com/recollect-ai/recollect-go/pkg/store/memory"
	"github.com/recollect-ai/recollect-go/pkg/vector"
	"github.com/recollect-ai/recollect-go/pkg/vector/chromem"
)

const testProfile = "personal"

func newTestRetriever(t *testing.T) (*Retriever, *memstore.Client, vector.Index) {
	t.Helper()

	st := memstore.NewClient()
	index := chromem.New(embmock.New(0))
	retriever, err := New(st, index, rank.NewRanker(30))
	require.NoError(t, err)
	t.Cleanup(func() { _ = retriever.Close() })

	return retriever, st, index
}

func seedMemory(t *testing.T, st *memstore.Client, index vector.Index, id int64, content string, memType core.MemoryType, age time.Duration) *core.Memory {
	t.Helper()

	memory := &core.Memory{
		ID:              id,
		ProfileID:       testProfile,
		Content:         content,
		Type:            memType,
		ImportanceScore: 0.5,
		CreatedAt:       time.Now().Add(-age),
	}
	require.NoError(t, st.CreateMemory(context.Background(), memory))
	require.NoError(t, index.Upsert(context.Background(), testProfile, id, content))
	return memory
}

func findCandidate(candidates []*core.RetrievalCandidate, id int64) *core.RetrievalCandidate {
	for _, c := range candidates {
		if c.Memory.ID == id {
			return c
		}
	}
	return nil
}

func TestRetrieveRanksRelevantMemoryFirst(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "loves hiking in the mountains every weekend", core.MemoryPreference, time.Hour)
	seedMemory(t, st, index, 2, "works as an accountant downtown", core.MemoryFact, time.Hour)

	result, err := retriever.Retrieve(context.Background(), testProfile, "planning a hiking trip", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Empty(t, result.Failures)

	assert.Equal(t, int64(1), result.Candidates[0].Memory.ID)
	assert.Contains(t, result.Candidates[0].SearchSources, SourceKeyword)
}

func TestRetrieveAccumulatesSources(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "enjoys jazz concerts", core.MemoryPreference, time.Hour)

	result, err := retriever.Retrieve(context.Background(), testProfile, "any good jazz shows", nil, 5)
	require.NoError(t, err)

	candidate := findCandidate(result.Candidates, 1)
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.SearchSources, SourceSemantic)
	assert.Contains(t, candidate.SearchSources, SourceKeyword)
	// The semantic distance must survive the merge with the keyword
	// strategy's neutral placeholder.
	assert.NotEqual(t, neutralDistance, candidate.SimilarityDistance)
}

func TestRetrieveTemporalWindow(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "booked a dentist appointment", core.MemoryEvent, 48*time.Hour)
	seedMemory(t, st, index, 2, "visited the science museum", core.MemoryEvent, 60*24*time.Hour)

	result, err := retriever.Retrieve(context.Background(), testProfile, "what happened last week", nil, 5)
	require.NoError(t, err)

	recent := findCandidate(result.Candidates, 1)
	require.NotNil(t, recent)
	assert.Contains(t, recent.SearchSources, SourceTemporal)

	if old := findCandidate(result.Candidates, 2); old != nil {
		assert.NotContains(t, old.SearchSources, SourceTemporal)
	}
}

func TestRetrieveEntityStrategy(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "had lunch with Sarah at the new ramen place", core.MemoryRelationship, time.Hour)
	seedMemory(t, st, index, 2, "needs to renew the car insurance", core.MemoryFact, time.Hour)

	result, err := retriever.Retrieve(context.Background(), testProfile, "tell me about Sarah", nil, 5)
	require.NoError(t, err)

	candidate := findCandidate(result.Candidates, 1)
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.SearchSources, SourceEntity)
}

func TestRetrieveRespectsLimit(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	for i := int64(1); i <= 8; i++ {
		seedMemory(t, st, index, i, "enjoys cooking pasta dishes", core.MemoryPreference, time.Hour)
	}

	result, err := retriever.Retrieve(context.Background(), testProfile, "cooking ideas", nil, 3)
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 3)
}

func TestRetrieveProfileIsolation(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "enjoys cooking pasta dishes", core.MemoryPreference, time.Hour)

	other := &core.Memory{ID: 2, ProfileID: "work", Content: "enjoys cooking pasta dishes", Type: core.MemoryPreference, CreatedAt: time.Now()}
	require.NoError(t, st.CreateMemory(context.Background(), other))
	require.NoError(t, index.Upsert(context.Background(), "work", 2, other.Content))

	result, err := retriever.Retrieve(context.Background(), testProfile, "cooking", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, findCandidate(result.Candidates, 2))
}

func TestRetrieveCacheHitAndInvalidate(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "enjoys jazz concerts", core.MemoryPreference, time.Hour)

	first, err := retriever.Retrieve(context.Background(), testProfile, "any good jazz shows", nil, 5)
	require.NoError(t, err)
	require.NotNil(t, findCandidate(first.Candidates, 1))

	// Let the buffered cache write land before relying on a hit.
	retriever.cache.Wait()

	require.NoError(t, st.DeleteMemory(context.Background(), testProfile, 1))
	require.NoError(t, index.Delete(context.Background(), testProfile, 1))

	// The cached result still carries the deleted memory.
	cached, err := retriever.Retrieve(context.Background(), testProfile, "any good jazz shows", nil, 5)
	require.NoError(t, err)
	require.NotNil(t, findCandidate(cached.Candidates, 1))

	// Invalidation bumps the profile's epoch; the next retrieval misses the
	// cache and no longer sees the deleted memory.
	retriever.Invalidate(testProfile)

	fresh, err := retriever.Retrieve(context.Background(), testProfile, "any good jazz shows", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, findCandidate(fresh.Candidates, 1))
}

func TestRetrieveExplicitIntentBypassesCache(t *testing.T) {
	retriever, st, index := newTestRetriever(t)
	seedMemory(t, st, index, 1, "had lunch with Sarah at the new ramen place", core.MemoryRelationship, time.Hour)

	withEntity, err := retriever.Retrieve(context.Background(), testProfile, "catch me up", &Intent{Entities: []string{"Sarah"}}, 5)
	require.NoError(t, err)
	candidate := findCandidate(withEntity.Candidates, 1)
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.SearchSources, SourceEntity)
	retriever.cache.Wait()

	// The same query with a different explicit intent must not reuse the
	// first call's result.
	without, err := retriever.Retrieve(context.Background(), testProfile, "catch me up", &Intent{}, 5)
	require.NoError(t, err)
	if c := findCandidate(without.Candidates, 1); c != nil {
		assert.NotContains(t, c.SearchSources, SourceEntity)
	}
}

func TestRetrieveMissingProfileID(t *testing.T) {
	retriever, _, _ := newTestRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "", "anything", nil, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

// failingIndex simulates an unavailable vector backend.
type failingIndex struct{}

func (f *failingIndex) Upsert(ctx context.Context, profileID string, memoryID int64, text string) error {
	return nil
}

func (f *failingIndex) Query(ctx context.Context, profileID, text string, k int) ([]vector.Match, error) {
	return nil, errors.New("vector backend unavailable")
}

func (f *failingIndex) Delete(ctx context.Context, profileID string, memoryID int64) error {
	return nil
}

func (f *failingIndex) Close() error { return nil }

func TestRetrieveStrategyFailureDegrades(t *testing.T) {
	st := memstore.NewClient()
	retriever, err := New(st, &failingIndex{}, rank.NewRanker(30))
	require.NoError(t, err)
	t.Cleanup(func() { _ = retriever.Close() })

	memory := &core.Memory{ID: 1, ProfileID: testProfile, Content: "enjoys hiking trails", Type: core.MemoryPreference, CreatedAt: time.Now()}
	require.NoError(t, st.CreateMemory(context.Background(), memory))

	result, err := retriever.Retrieve(context.Background(), testProfile, "hiking plans", nil, 5)
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "semantic")

	candidate := findCandidate(result.Candidates, 1)
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.SearchSources, SourceKeyword)
}

func TestParseIntentTimeReferences(t *testing.T) {
	tests := []struct {
		query    string
		wantDays int
	}{
		{"what did I say yesterday", 1},
		{"plans from last week", 7},
		{"anything from last month", 30},
	}

	for _, tt := range tests {
		intent := ParseIntent(tt.query)
		assert.True(t, intent.TimeReference, tt.query)
		assert.Equal(t, tt.wantDays, intent.WindowDays, tt.query)
	}

	assert.False(t, ParseIntent("do I like sushi").TimeReference)
}

func TestParseIntentEntities(t *testing.T) {
	intent := ParseIntent("did I mention Sarah or the trip to Portland")
	assert.ElementsMatch(t, []string{"Sarah", "Portland"}, intent.Entities)

	// Sentence-initial capitalization is not an entity.
	assert.Empty(t, ParseIntent("Remind me about dinner").Entities)
}
