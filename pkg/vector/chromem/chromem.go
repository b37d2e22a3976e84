// Package chromem provides a chromem-go backed implementation of vector.Index.
//
// Each profile gets its own collection so queries never cross profile
// boundaries. Embeddings are produced by an injected embedder.Provider rather
// than chromem's built-in embedding functions, which keeps the index usable
// with any provider (or the deterministic mock in tests).
package chromem

import (
	"context"
	"fmt"
	"strconv"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/recollect-ai/recollect-go/pkg/embedder"
	"github.com/recollect-ai/recollect-go/pkg/vector"
)

// Index implements vector.Index using chromem-go's in-process store.
type Index struct {
	db       *chromemgo.DB
	embedder embedder.Provider
}

// New creates a chromem-backed vector index using the given embedder.
func New(provider embedder.Provider) *Index {
	return &Index{
		db:       chromemgo.NewDB(),
		embedder: provider,
	}
}

// collection returns the per-profile collection, creating it on first use.
func (x *Index) collection(profileID string) (*chromemgo.Collection, error) {
	// nil embedding func: every call passes explicit embeddings, so chromem
	// never needs to embed on its own.
	col, err := x.db.GetOrCreateCollection("profile-"+profileID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// Upsert indexes the given text under a memory ID.
func (x *Index) Upsert(ctx context.Context, profileID string, memoryID int64, text string) error {
	embedding, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	col, err := x.collection(profileID)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	err = col.AddDocument(ctx, chromemgo.Document{
		ID:        strconv.FormatInt(memoryID, 10),
		Content:   text,
		Embedding: toFloat32(embedding),
	})
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Query returns up to k nearest neighbors of the query text.
func (x *Index) Query(ctx context.Context, profileID string, text string, k int) ([]vector.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	col, err := x.collection(profileID)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	// chromem rejects nResults larger than the collection, so clamp first.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	embedding, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, toFloat32(embedding), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}

	matches := make([]vector.Match, 0, len(results))
	for _, res := range results {
		id, err := strconv.ParseInt(res.ID, 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, vector.Match{
			MemoryID: id,
			Distance: clampDistance(1 - float64(res.Similarity)),
		})
	}

	return matches, nil
}

// Delete removes a memory from the index.
func (x *Index) Delete(ctx context.Context, profileID string, memoryID int64) error {
	col, err := x.collection(profileID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	if err := col.Delete(ctx, nil, nil, strconv.FormatInt(memoryID, 10)); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	return nil
}

// Close implements vector.Index. The in-process store has nothing to release.
func (x *Index) Close() error {
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func clampDistance(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

var _ vector.Index = (*Index)(nil)
