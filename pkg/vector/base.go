// Package vector provides interfaces and types for the vector index used by
// semantic retrieval and duplicate detection.
package vector

import "context"

// Match is a single nearest-neighbor result from a vector query.
type Match struct {
	// MemoryID is the ID of the matched memory.
	MemoryID int64

	// Distance is the cosine distance between the query and the match,
	// in [0, 1]. 0 means identical, 1 means unrelated.
	Distance float64
}

// Index defines the interface for vector index backends.
//
// Entries are profile-scoped: queries only ever return memories indexed
// under the same profile.
type Index interface {
	// Upsert indexes the given text under a memory ID, replacing any
	// previous entry for that ID.
	Upsert(ctx context.Context, profileID string, memoryID int64, text string) error

	// Query returns up to k nearest neighbors of the query text, ordered
	// by ascending distance.
	Query(ctx context.Context, profileID string, text string, k int) ([]Match, error)

	// Delete removes a memory from the index. Removing an ID that was
	// never indexed is not an error.
	Delete(ctx context.Context, profileID string, memoryID int64) error

	// Close closes the index and releases resources.
	Close() error
}
