// Package retrieve finds the stored memories relevant to a query by running
// four independent strategies (semantic, keyword, temporal, entity) against a
// profile-scoped store, unioning their results, and ranking the union.
package retrieve

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/rank"
	"github.com/recollect-ai/recollect-go/pkg/store"
	"github.com/recollect-ai/recollect-go/pkg/vector"
)

// Strategy names reported in RetrievalCandidate.SearchSources.
const (
	SourceSemantic = "semantic"
	SourceKeyword  = "keyword"
	SourceTemporal = "temporal"
	SourceEntity   = "entity"
)

// neutralDistance is assigned to candidates surfaced only by non-semantic
// strategies, which have no vector distance of their own.
const neutralDistance = 0.5

// listScanLimit bounds how many memories the lexical strategies scan per query.
const listScanLimit = 200

// Retriever runs the four retrieval strategies and ranks their union.
type Retriever struct {
	store  store.Store
	index  vector.Index
	ranker *rank.Ranker
	cache  *ristretto.Cache

	mu     sync.Mutex
	epochs map[string]uint64

	now func() time.Time
}

// New creates a retriever over the given store, vector index, and ranker.
func New(st store.Store, index vector.Index, ranker *rank.Ranker) (*Retriever, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, core.NewPipelineError("NewRetriever", err)
	}

	return &Retriever{
		store:  st,
		index:  index,
		ranker: ranker,
		cache:  cache,
		epochs: make(map[string]uint64),
		now:    time.Now,
	}, nil
}

// Result is the outcome of a retrieval pass.
type Result struct {
	// Candidates is the ranked union of all strategy results, at most the
	// requested limit.
	Candidates []*core.RetrievalCandidate

	// Failures describes strategies that could not run. A failing strategy
	// contributes zero candidates; it never aborts retrieval.
	Failures []string
}

// Retrieve returns the ranked memories relevant to the query.
//
// The four strategies run concurrently; their results are unioned by memory
// ID, so a memory surfaced by several strategies appears once with all
// contributing sources accumulated. The union is scored by the ranker and
// truncated to limit. The merge is commutative: the outcome does not depend
// on strategy completion order.
func (r *Retriever) Retrieve(ctx context.Context, profileID, query string, intent *Intent, limit int) (*Result, error) {
	if profileID == "" {
		return nil, core.NewPipelineError("Retrieve", fmt.Errorf("%w: profile ID is required", core.ErrValidation))
	}
	if limit <= 0 {
		limit = 5
	}

	// Only parsed intents are cached: the key covers profile, epoch, limit,
	// and query, so a caller-supplied intent has to bypass the cache or two
	// calls with different intents would collide on one entry.
	cacheable := intent == nil
	if intent == nil {
		intent = ParseIntent(query)
	}

	var cacheKey string
	if cacheable {
		cacheKey = r.cacheKey(profileID, query, limit)
		if cached, ok := r.cache.Get(cacheKey); ok {
			if result, ok := cached.(*Result); ok {
				return result, nil
			}
		}
	}

	type strategyResult struct {
		source     string
		candidates []*core.RetrievalCandidate
		err        error
	}

	strategies := []struct {
		source string
		run    func(context.Context) ([]*core.RetrievalCandidate, error)
	}{
		{SourceSemantic, func(ctx context.Context) ([]*core.RetrievalCandidate, error) {
			return r.semanticSearch(ctx, profileID, query, limit)
		}},
		{SourceKeyword, func(ctx context.Context) ([]*core.RetrievalCandidate, error) {
			return r.keywordSearch(ctx, profileID, query)
		}},
		{SourceTemporal, func(ctx context.Context) ([]*core.RetrievalCandidate, error) {
			return r.temporalSearch(ctx, profileID, intent)
		}},
		{SourceEntity, func(ctx context.Context) ([]*core.RetrievalCandidate, error) {
			return r.entitySearch(ctx, profileID, intent)
		}},
	}

	results := make(chan strategyResult, len(strategies))
	var wg sync.WaitGroup
	for _, s := range strategies {
		wg.Add(1)
		go func(source string, run func(context.Context) ([]*core.RetrievalCandidate, error)) {
			defer wg.Done()
			candidates, err := run(ctx)
			results <- strategyResult{source: source, candidates: candidates, err: err}
		}(s.source, s.run)
	}
	wg.Wait()
	close(results)

	merged := make(map[int64]*core.RetrievalCandidate)
	var failures []string
	for res := range results {
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s strategy failed: %v", res.source, res.err))
			continue
		}
		for _, c := range res.candidates {
			existing, ok := merged[c.Memory.ID]
			if !ok {
				merged[c.Memory.ID] = c
				continue
			}
			// A real vector distance is authoritative over the neutral
			// placeholder carried by non-semantic strategies.
			newSemantic := hasSource(c.SearchSources, SourceSemantic)
			existingSemantic := hasSource(existing.SearchSources, SourceSemantic)
			if newSemantic && (!existingSemantic || c.SimilarityDistance < existing.SimilarityDistance) {
				existing.SimilarityDistance = c.SimilarityDistance
			}
			existing.SearchSources = append(existing.SearchSources, c.SearchSources...)
		}
	}

	union := make([]*core.RetrievalCandidate, 0, len(merged))
	for _, c := range merged {
		sortSources(c.SearchSources)
		union = append(union, c)
	}

	ranked := r.ranker.Rank(union)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := &Result{Candidates: ranked, Failures: failures}
	if cacheable && len(failures) == 0 {
		r.cache.Set(cacheKey, result, int64(len(ranked)+1))
	}

	return result, nil
}

// Invalidate drops cached retrieval results for a profile. Must be called
// whenever the profile's memories change, whether a memory was created or
// deleted, so the next query reflects the change.
func (r *Retriever) Invalidate(profileID string) {
	r.mu.Lock()
	r.epochs[profileID]++
	r.mu.Unlock()
}

// Close releases the retriever's cache resources.
func (r *Retriever) Close() error {
	r.cache.Close()
	return nil
}

// cacheKey embeds the profile's epoch counter, so Invalidate makes every
// earlier key unreachable without a prefix scan.
func (r *Retriever) cacheKey(profileID, query string, limit int) string {
	r.mu.Lock()
	epoch := r.epochs[profileID]
	r.mu.Unlock()
	return fmt.Sprintf("retrieve:%s:%d:%d:%s", profileID, epoch, limit, query)
}

// semanticSearch queries the vector index for nearest neighbors and loads
// the backing memories.
func (r *Retriever) semanticSearch(ctx context.Context, profileID, query string, limit int) ([]*core.RetrievalCandidate, error) {
	matches, err := r.index.Query(ctx, profileID, query, limit*2)
	if err != nil {
		return nil, err
	}

	var candidates []*core.RetrievalCandidate
	for _, match := range matches {
		memory, err := r.store.GetMemory(ctx, profileID, match.MemoryID)
		if err != nil {
			// The index can lag behind deletions; skip dangling entries.
			continue
		}
		candidates = append(candidates, &core.RetrievalCandidate{
			Memory:             memory,
			SimilarityDistance: match.Distance,
			SearchSources:      []string{SourceSemantic},
		})
	}

	return candidates, nil
}

// keywordSearch surfaces memories whose content shares a meaningful word
// with the query.
func (r *Retriever) keywordSearch(ctx context.Context, profileID, query string) ([]*core.RetrievalCandidate, error) {
	words := meaningfulWords(query)
	if len(words) == 0 {
		return nil, nil
	}

	memories, err := r.store.ListMemories(ctx, profileID, &store.ListOptions{Limit: listScanLimit})
	if err != nil {
		return nil, err
	}

	var candidates []*core.RetrievalCandidate
	for _, memory := range memories {
		content := strings.ToLower(memory.Content)
		for _, word := range words {
			if strings.Contains(content, word) {
				candidates = append(candidates, &core.RetrievalCandidate{
					Memory:             memory,
					SimilarityDistance: neutralDistance,
					SearchSources:      []string{SourceKeyword},
				})
				break
			}
		}
	}

	return candidates, nil
}

// temporalSearch surfaces memories created within the intent's time window.
// Without a time reference the strategy contributes nothing.
func (r *Retriever) temporalSearch(ctx context.Context, profileID string, intent *Intent) ([]*core.RetrievalCandidate, error) {
	if !intent.TimeReference {
		return nil, nil
	}

	since := r.now().AddDate(0, 0, -intent.WindowDays)
	memories, err := r.store.ListMemories(ctx, profileID, &store.ListOptions{
		Limit: listScanLimit,
		Since: since,
	})
	if err != nil {
		return nil, err
	}

	var candidates []*core.RetrievalCandidate
	for _, memory := range memories {
		candidates = append(candidates, &core.RetrievalCandidate{
			Memory:             memory,
			SimilarityDistance: neutralDistance,
			SearchSources:      []string{SourceTemporal},
		})
	}

	return candidates, nil
}

// entitySearch surfaces memories mentioning any entity named in the query.
func (r *Retriever) entitySearch(ctx context.Context, profileID string, intent *Intent) ([]*core.RetrievalCandidate, error) {
	if len(intent.Entities) == 0 {
		return nil, nil
	}

	memories, err := r.store.ListMemories(ctx, profileID, &store.ListOptions{Limit: listScanLimit})
	if err != nil {
		return nil, err
	}

	var candidates []*core.RetrievalCandidate
	for _, memory := range memories {
		content := strings.ToLower(memory.Content)
		for _, entity := range intent.Entities {
			if strings.Contains(content, strings.ToLower(entity)) {
				candidates = append(candidates, &core.RetrievalCandidate{
					Memory:             memory,
					SimilarityDistance: neutralDistance,
					SearchSources:      []string{SourceEntity},
				})
				break
			}
		}
	}

	return candidates, nil
}

func hasSource(sources []string, source string) bool {
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

// sortSources orders accumulated sources deterministically regardless of
// strategy completion order.
func sortSources(sources []string) {
	order := map[string]int{SourceSemantic: 0, SourceKeyword: 1, SourceTemporal: 2, SourceEntity: 3}
	for i := 1; i < len(sources); i++ {
		for j := i; j > 0 && order[sources[j-1]] > order[sources[j]]; j-- {
			sources[j-1], sources[j] = sources[j], sources[j-1]
		}
	}
}
