package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(&Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func sampleMemory(id int64) *core.Memory {
	return &core.Memory{
		ID:              id,
		ProfileID:       "personal",
		Content:         "loves hiking in the mountains",
		Type:            core.MemoryPreference,
		ImportanceScore: 0.7,
		Tags:            []string{"preference", "outdoors"},
	}
}

func TestCreateAndGetMemory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateMemory(ctx, sampleMemory(1)))

	memory, err := client.GetMemory(ctx, "personal", 1)
	require.NoError(t, err)
	assert.Equal(t, "loves hiking in the mountains", memory.Content)
	assert.Equal(t, core.MemoryPreference, memory.Type)
	assert.Equal(t, []string{"preference", "outdoors"}, memory.Tags)
	assert.False(t, memory.CreatedAt.IsZero())
}

func TestGetMemoryWrongProfile(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateMemory(ctx, sampleMemory(1)))

	_, err := client.GetMemory(ctx, "work", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateMemory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateMemory(ctx, sampleMemory(1)))

	updated, err := client.UpdateMemory(ctx, "personal", 1, "prefers alpine routes", 0.9, []string{"preference"})
	require.NoError(t, err)
	assert.Equal(t, "prefers alpine routes", updated.Content)
	assert.Equal(t, 0.9, updated.ImportanceScore)
	assert.Equal(t, []string{"preference"}, updated.Tags)
}

func TestIncrementMention(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateMemory(ctx, sampleMemory(1)))
	require.NoError(t, client.IncrementMention(ctx, "personal", 1))
	require.NoError(t, client.IncrementMention(ctx, "personal", 1))

	memory, err := client.GetMemory(ctx, "personal", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, memory.MentionCount)

	err = client.IncrementMention(ctx, "personal", 99)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListMemoriesFilters(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	old := sampleMemory(1)
	old.CreatedAt = time.Now().AddDate(0, 0, -60)
	require.NoError(t, client.CreateMemory(ctx, old))

	recent := sampleMemory(2)
	recent.Type = core.MemoryFact
	require.NoError(t, client.CreateMemory(ctx, recent))

	all, err := client.ListMemories(ctx, "personal", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID, "newest first")

	since, err := client.ListMemories(ctx, "personal", &store.ListOptions{Since: time.Now().AddDate(0, 0, -7)})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, int64(2), since[0].ID)

	facts, err := client.ListMemories(ctx, "personal", &store.ListOptions{Types: []core.MemoryType{core.MemoryFact}})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(2), facts[0].ID)
}

func TestDeleteMemory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateMemory(ctx, sampleMemory(1)))
	require.NoError(t, client.DeleteMemory(ctx, "personal", 1))

	_, err := client.GetMemory(ctx, "personal", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = client.DeleteMemory(ctx, "personal", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMessagesRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		role := "user"
		require.NoError(t, client.AppendMessage(ctx, &core.ChatMessage{
			SessionID: "session-1",
			ProfileID: "personal",
			Role:      role,
			Content:   content,
		}))
	}

	messages, err := client.RecentMessages(ctx, "session-1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Content)
	assert.Equal(t, "third", messages[1].Content)

	count, err := client.CountMessages(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = client.CountMessages(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, count)
}
