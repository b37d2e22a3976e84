// Package store provides interfaces and types for the relational persistence
// backends holding memories and chat messages.
//
// Every operation is profile-scoped: a profile ID is required wherever a
// memory is read or mutated, and implementations must never return rows
// belonging to another profile.
package store

import (
	"context"
	"time"

	"github.com/recollect-ai/recollect-go/pkg/core"
)

// ListOptions contains options for ListMemories.
type ListOptions struct {
	// Limit sets the maximum number of results to return (0 = backend default).
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int

	// Since, when non-zero, restricts results to memories created at or
	// after the given time. Used by the temporal retrieval strategy.
	Since time.Time

	// Types, when non-empty, restricts results to the given memory types.
	Types []core.MemoryType
}

// Store defines the interface for relational persistence backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement
// this interface.
type Store interface {
	// CreateMemory inserts a memory. The caller assigns the ID.
	CreateMemory(ctx context.Context, memory *core.Memory) error

	// GetMemory retrieves a memory by ID within the given profile.
	// Returns core.ErrNotFound if the memory does not exist or belongs to
	// a different profile.
	GetMemory(ctx context.Context, profileID string, id int64) (*core.Memory, error)

	// UpdateMemory replaces a memory's content, importance score, and tags.
	UpdateMemory(ctx context.Context, profileID string, id int64, content string, importance float64, tags []string) (*core.Memory, error)

	// IncrementMention atomically increments a memory's mention count.
	// The increment is a single read-modify-write statement so concurrent
	// turns never lose updates.
	IncrementMention(ctx context.Context, profileID string, id int64) error

	// ListMemories retrieves memories for a profile, newest first.
	ListMemories(ctx context.Context, profileID string, opts *ListOptions) ([]*core.Memory, error)

	// DeleteMemory deletes a memory by ID within the given profile.
	DeleteMemory(ctx context.Context, profileID string, id int64) error

	// AppendMessage appends a chat message to a session.
	AppendMessage(ctx context.Context, message *core.ChatMessage) error

	// RecentMessages returns the most recent messages of a session in
	// chronological order, at most limit entries.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error)

	// CountMessages returns the number of messages appended to a session.
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// Close closes the store and releases resources.
	Close() error
}
