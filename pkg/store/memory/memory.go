// Package memory provides an in-process implementation of store.Store backed
// by maps. It is intended for tests and local development; nothing survives a
// restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/store"
)

// Client implements store.Store with in-process maps.
type Client struct {
	mu        sync.RWMutex
	memories  map[int64]*core.Memory
	messages  []*core.ChatMessage
	messageID int64
}

// NewClient creates an empty in-memory store.
func NewClient() *Client {
	return &Client{memories: make(map[int64]*core.Memory)}
}

// CreateMemory inserts a memory.
func (c *Client) CreateMemory(ctx context.Context, memory *core.Memory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.memories[memory.ID]; exists {
		return fmt.Errorf("CreateMemory: duplicate id %d", memory.ID)
	}

	now := time.Now()
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now

	stored := *memory
	c.memories[memory.ID] = &stored
	return nil
}

// GetMemory retrieves a memory by ID within the given profile.
func (c *Client) GetMemory(ctx context.Context, profileID string, id int64) (*core.Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	memory, ok := c.memories[id]
	if !ok || memory.ProfileID != profileID {
		return nil, fmt.Errorf("GetMemory: %w", core.ErrNotFound)
	}

	copied := *memory
	return &copied, nil
}

// UpdateMemory replaces a memory's content, importance score, and tags.
func (c *Client) UpdateMemory(ctx context.Context, profileID string, id int64, content string, importance float64, tags []string) (*core.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	memory, ok := c.memories[id]
	if !ok || memory.ProfileID != profileID {
		return nil, fmt.Errorf("UpdateMemory: %w", core.ErrNotFound)
	}

	memory.Content = content
	memory.ImportanceScore = importance
	memory.Tags = tags
	memory.UpdatedAt = time.Now()

	copied := *memory
	return &copied, nil
}

// IncrementMention atomically increments a memory's mention count.
func (c *Client) IncrementMention(ctx context.Context, profileID string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	memory, ok := c.memories[id]
	if !ok || memory.ProfileID != profileID {
		return fmt.Errorf("IncrementMention: %w", core.ErrNotFound)
	}

	memory.MentionCount++
	memory.UpdatedAt = time.Now()
	return nil
}

// ListMemories retrieves memories for a profile, newest first.
func (c *Client) ListMemories(ctx context.Context, profileID string, opts *store.ListOptions) ([]*core.Memory, error) {
	if opts == nil {
		opts = &store.ListOptions{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var memories []*core.Memory
	for _, memory := range c.memories {
		if memory.ProfileID != profileID {
			continue
		}
		if !opts.Since.IsZero() && memory.CreatedAt.Before(opts.Since) {
			continue
		}
		if len(opts.Types) > 0 && !containsType(opts.Types, memory.Type) {
			continue
		}
		copied := *memory
		memories = append(memories, &copied)
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(memories) {
			return nil, nil
		}
		memories = memories[opts.Offset:]
	}
	if opts.Limit > 0 && len(memories) > opts.Limit {
		memories = memories[:opts.Limit]
	}

	return memories, nil
}

// DeleteMemory deletes a memory by ID within the given profile.
func (c *Client) DeleteMemory(ctx context.Context, profileID string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	memory, ok := c.memories[id]
	if !ok || memory.ProfileID != profileID {
		return fmt.Errorf("DeleteMemory: %w", core.ErrNotFound)
	}

	delete(c.memories, id)
	return nil
}

// AppendMessage appends a chat message to a session.
func (c *Client) AppendMessage(ctx context.Context, message *core.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messageID++
	message.ID = c.messageID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	copied := *message
	c.messages = append(c.messages, &copied)
	return nil
}

// RecentMessages returns the most recent messages of a session in
// chronological order.
func (c *Client) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []*core.ChatMessage
	for _, msg := range c.messages {
		if msg.SessionID == sessionID {
			copied := *msg
			matched = append(matched, &copied)
		}
	}

	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	return matched, nil
}

// CountMessages returns the number of messages appended to a session.
func (c *Client) CountMessages(ctx context.Context, sessionID string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, msg := range c.messages {
		if msg.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

// Close implements store.Store.
func (c *Client) Close() error {
	return nil
}

func containsType(types []core.MemoryType, t core.MemoryType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

var _ store.Store = (*Client)(nil)
