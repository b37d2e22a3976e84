// Package extract proposes new memory candidates from a completed chat turn.
//
// Extraction is rule-based and deterministic: sentences are classified into
// the five memory categories by indicator phrases, scored by a fixed
// importance heuristic, and near-duplicates are merged by shared-word ratio
// before anything is persisted. An LLM-assisted path is available when a
// provider is configured; it falls back to the rules on any failure.
package extract

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/llm"
)

// duplicateOverlap is the shared-word ratio above which two candidates are
// considered the same recollection and merged.
const duplicateOverlap = 0.8

// Candidate is a proposed memory that has not been persisted yet. It is
// merged or discarded before becoming a core.Memory.
type Candidate struct {
	// Content is the proposed memory text.
	Content string `json:"content"`

	// Type is the provisional category.
	Type core.MemoryType `json:"memory_type"`

	// ImportanceScore is the provisional importance in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// Tags are the provisional tags.
	Tags []string `json:"tags,omitempty"`

	// Entities are capitalized names mentioned in the content.
	Entities []string `json:"entities,omitempty"`
}

// Extractor derives memory candidates from turn text.
type Extractor struct {
	provider llm.Provider
}

// New creates a rule-based extractor.
func New() *Extractor {
	return &Extractor{}
}

// NewWithLLM creates an extractor that first asks the given provider for
// candidates and falls back to the rule-based path when the call fails or
// returns nothing usable.
func NewWithLLM(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// typeIndicators maps indicator phrases to memory categories. The first
// category whose indicator appears in a sentence wins; order encodes
// precedence (a sentence mentioning "my sister" is a relationship even if it
// also says "I like").
var typeIndicators = []struct {
	memoryType core.MemoryType
	phrases    []string
}{
	{core.MemoryRelationship, []string{
		"my friend", "my wife", "my husband", "my partner", "my mom", "my mother",
		"my dad", "my father", "my sister", "my brother", "my son", "my daughter",
		"my boss", "my colleague", "my coworker", "my neighbor",
	}},
	{core.MemoryPreference, []string{
		"i love", "i like", "i prefer", "i enjoy", "i hate", "i dislike",
		"i can't stand", "my favorite", "i always", "i never", "i usually",
	}},
	{core.MemoryEvent, []string{
		"yesterday", "today", "tomorrow", "last week", "next week", "went to",
		"going to", "visited", "attended", "meeting", "appointment", "birthday",
		"anniversary", "trip to",
	}},
	{core.MemoryFact, []string{
		"i am", "i'm", "i work", "i live", "i have", "i own", "i speak",
		"my name", "my job", "my car", "my house", "my apartment", "i was born",
	}},
}

// importanceBase is the starting importance per category. Preferences and
// facts persist longer than one-off events, so they start higher.
var importanceBase = map[core.MemoryType]float64{
	core.MemoryPreference:   0.7,
	core.MemoryFact:         0.65,
	core.MemoryRelationship: 0.6,
	core.MemoryEvent:        0.5,
	core.MemoryOther:        0.3,
}

// emphasisWords bump importance when present.
var emphasisWords = []string{"always", "never", "important", "really", "very", "definitely"}

// Extract derives zero or more candidates from turn text.
//
// When an LLM provider is configured it is consulted first; otherwise, or on
// any provider failure, the deterministic rule-based path runs. Identical
// input always produces identical rule-based output.
func (e *Extractor) Extract(ctx context.Context, text string) []*Candidate {
	if e.provider != nil {
		if candidates, err := e.extractLLM(ctx, text); err == nil && len(candidates) > 0 {
			return candidates
		}
	}
	return e.extractRules(text)
}

// extractRules is the deterministic extraction path.
func (e *Extractor) extractRules(text string) []*Candidate {
	var candidates []*Candidate
	for _, sentence := range splitSentences(text) {
		candidate := classify(sentence)
		if candidate != nil {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// classify turns a single sentence into a candidate, or nil when the
// sentence is not worth remembering.
func classify(sentence string) *Candidate {
	trimmed := strings.TrimSpace(sentence)
	if trimmed == "" || strings.HasSuffix(trimmed, "?") {
		return nil
	}

	words := strings.Fields(trimmed)
	if len(words) < 3 {
		return nil
	}

	lower := strings.ToLower(trimmed)

	memoryType := core.MemoryOther
	var matched string
	for _, group := range typeIndicators {
		for _, phrase := range group.phrases {
			if strings.Contains(lower, phrase) {
				memoryType = group.memoryType
				matched = phrase
				break
			}
		}
		if matched != "" {
			break
		}
	}

	// Untyped sentences only qualify when they are first-person statements;
	// anything else is conversational filler.
	if memoryType == core.MemoryOther {
		if !strings.Contains(lower, "i ") && !strings.HasPrefix(lower, "i'") && !strings.Contains(lower, "my ") {
			return nil
		}
	}

	importance := importanceBase[memoryType]
	for _, word := range emphasisWords {
		if strings.Contains(lower, word) {
			importance += 0.1
			break
		}
	}
	if len(words) > 10 {
		importance += 0.05
	}
	importance = clamp01(importance)

	entities := extractEntities(trimmed)

	tags := []string{string(memoryType)}
	for _, entity := range entities {
		tags = append(tags, strings.ToLower(entity))
	}

	return &Candidate{
		Content:         trimmed,
		Type:            memoryType,
		ImportanceScore: importance,
		Tags:            tags,
		Entities:        entities,
	}
}

// Consolidate merges near-duplicate candidates.
//
// Two candidates are duplicates when their shared-word ratio exceeds the
// fixed threshold. The merged candidate keeps the longer content, the
// maximum importance score, and the union of tags and entities. Order of the
// surviving candidates follows first appearance.
func (e *Extractor) Consolidate(candidates []*Candidate) []*Candidate {
	var result []*Candidate
	for _, candidate := range candidates {
		merged := false
		for _, kept := range result {
			if sharedWordRatio(kept.Content, candidate.Content) > duplicateOverlap {
				mergeInto(kept, candidate)
				merged = true
				break
			}
		}
		if !merged {
			result = append(result, candidate)
		}
	}
	return result
}

// mergeInto folds src into dst in place.
func mergeInto(dst, src *Candidate) {
	if len(src.Content) > len(dst.Content) {
		dst.Content = src.Content
	}
	if src.ImportanceScore > dst.ImportanceScore {
		dst.ImportanceScore = src.ImportanceScore
	}
	dst.Tags = unionStrings(dst.Tags, src.Tags)
	dst.Entities = unionStrings(dst.Entities, src.Entities)
}

// sharedWordRatio is the fraction of distinct words the two texts share,
// relative to the smaller word set. Identical texts score 1.0; texts with no
// common words score 0.0.
func sharedWordRatio(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	shared := 0
	for word := range wordsA {
		if wordsB[word] {
			shared++
		}
	}

	smaller := len(wordsA)
	if len(wordsB) < smaller {
		smaller = len(wordsB)
	}
	return float64(shared) / float64(smaller)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(word, ".,!?;:'\"()")] = true
	}
	delete(set, "")
	return set
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	result := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// splitSentences breaks text on terminal punctuation and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// extractEntities returns capitalized words that are not sentence-initial,
// deduplicated in order of first appearance.
func extractEntities(sentence string) []string {
	words := strings.Fields(sentence)
	seen := make(map[string]bool)
	var entities []string
	for i, word := range words {
		trimmed := strings.Trim(word, ".,!?;:'\"()")
		if len(trimmed) < 2 || i == 0 {
			continue
		}
		first := trimmed[0]
		if first < 'A' || first > 'Z' {
			continue
		}
		// "I" and contractions of it are not names.
		if trimmed == "I" || strings.HasPrefix(trimmed, "I'") {
			continue
		}
		if seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		entities = append(entities, trimmed)
	}
	return entities
}

// extractionPrompt asks the model for structured candidates. The reply is
// one JSON object per line.
const extractionPrompt = `Extract durable facts, preferences, events, and relationships about the user from the message below.
Reply with one JSON object per line, each of the form:
{"content": "...", "memory_type": "fact|preference|event|relationship|other", "importance_score": 0.0, "tags": ["..."]}
Reply with nothing if there is nothing worth remembering.

Message:
`

// extractLLM asks the configured provider for candidates.
func (e *Extractor) extractLLM(ctx context.Context, text string) ([]*Candidate, error) {
	reply, err := e.provider.Generate(ctx, extractionPrompt+text, llm.WithTemperature(0.0), llm.WithMaxTokens(500))
	if err != nil {
		return nil, err
	}

	var candidates []*Candidate
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var candidate Candidate
		if err := json.Unmarshal([]byte(line), &candidate); err != nil {
			continue
		}
		if candidate.Content == "" {
			continue
		}
		if !validMemoryType(candidate.Type) {
			candidate.Type = core.MemoryOther
		}
		candidate.ImportanceScore = clamp01(candidate.ImportanceScore)
		if candidate.Entities == nil {
			candidate.Entities = extractEntities(candidate.Content)
		}
		candidates = append(candidates, &candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ImportanceScore > candidates[j].ImportanceScore
	})

	return candidates, nil
}

func validMemoryType(t core.MemoryType) bool {
	for _, known := range core.MemoryTypes {
		if known == t {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
