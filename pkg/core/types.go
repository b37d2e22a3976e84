// Package core provides the shared types, errors, and configuration for the
// Recollect memory pipeline.
package core

import "time"

// Memory represents a durable recollection owned by exactly one profile.
//
// A memory contains:
//   - Content: The text content of the recollection
//   - Type: One of the five memory categories (fact, preference, event, relationship, other)
//   - ImportanceScore: How important the memory is (0.0-1.0)
//   - MentionCount: How many times the memory has been surfaced or re-stated
//
// The embedding vector for a memory lives in the external vector index and is
// referenced by the memory ID; it is never stored on this struct.
//
// Example:
//
//	memory := &core.Memory{
//	    ID:        1234567890,
//	    ProfileID: "personal",
//	    Content:   "Prefers window seats on long flights",
//	    Type:      core.MemoryPreference,
//	}
type Memory struct {
	// ID is the unique identifier of the memory.
	ID int64 `json:"id"`

	// ProfileID identifies the profile that owns this memory.
	// Profiles are isolation boundaries; no query ever crosses them.
	ProfileID string `json:"profile_id"`

	// Content is the text content of the memory.
	Content string `json:"content"`

	// Type is the memory category.
	Type MemoryType `json:"memory_type"`

	// ImportanceScore is the stored importance of the memory (0.0-1.0).
	ImportanceScore float64 `json:"importance_score"`

	// Tags is the ordered set of string tags attached to the memory.
	Tags []string `json:"tags,omitempty"`

	// MentionCount is the number of times the memory has been mentioned.
	// It is monotonically non-decreasing.
	MentionCount int `json:"mention_count"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryType categorizes a memory.
type MemoryType string

const (
	// MemoryFact is a durable factual statement about the user or their world.
	MemoryFact MemoryType = "fact"

	// MemoryPreference captures likes, dislikes, and habitual choices.
	MemoryPreference MemoryType = "preference"

	// MemoryEvent records something that happened at a point in time.
	MemoryEvent MemoryType = "event"

	// MemoryRelationship describes a person or relation in the user's life.
	MemoryRelationship MemoryType = "relationship"

	// MemoryOther is the catch-all category.
	MemoryOther MemoryType = "other"
)

// MemoryTypes lists all memory categories in presentation order.
var MemoryTypes = []MemoryType{
	MemoryFact,
	MemoryPreference,
	MemoryEvent,
	MemoryRelationship,
	MemoryOther,
}

// PrivacyRegime is the privacy mode attached to a session. Exactly one regime
// is active per turn; the regime decides which pipeline steps execute.
type PrivacyRegime string

const (
	// RegimeNormal runs the full pipeline: retrieval, response, extraction,
	// and periodic analysis.
	RegimeNormal PrivacyRegime = "normal"

	// RegimeIncognito disables memory retrieval and extraction entirely and
	// redacts detected sensitive spans before they reach the model.
	RegimeIncognito PrivacyRegime = "incognito"

	// RegimePauseRetention keeps retrieval active but creates no new
	// memories from the turn.
	RegimePauseRetention PrivacyRegime = "pause_retention"
)

// Valid reports whether the regime is one of the three supported modes.
func (r PrivacyRegime) Valid() bool {
	switch r {
	case RegimeNormal, RegimeIncognito, RegimePauseRetention:
		return true
	}
	return false
}

// RetrievalCandidate is a memory surfaced by one or more retrieval
// strategies, together with its per-query scoring inputs. Candidates are
// transient: they exist only while a turn is being processed and are never
// persisted.
type RetrievalCandidate struct {
	// Memory is the underlying stored memory.
	Memory *Memory `json:"memory"`

	// SimilarityDistance is the cosine distance reported by the vector
	// index for this query, in [0, 1]. Candidates surfaced only by
	// non-semantic strategies carry the neutral distance 0.5.
	SimilarityDistance float64 `json:"similarity_distance"`

	// RelevanceScore is the weighted score assigned by the ranker.
	RelevanceScore float64 `json:"relevance_score"`

	// SearchSources lists the strategies that surfaced this candidate.
	SearchSources []string `json:"search_sources"`
}

// ChatMessage is a single turn half (user or assistant) persisted for a session.
type ChatMessage struct {
	// ID is the unique identifier of the message.
	ID int64 `json:"id"`

	// SessionID identifies the conversation the message belongs to.
	SessionID string `json:"session_id"`

	// ProfileID identifies the profile the session runs under.
	ProfileID string `json:"profile_id"`

	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// CreatedAt is when the message was appended.
	CreatedAt time.Time `json:"created_at"`
}
