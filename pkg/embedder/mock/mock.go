// Package mock provides a deterministic in-process embedder.Provider for tests
// and local development. Vectors are derived from token hashes, so identical
// text always produces identical embeddings and texts sharing words produce
// similar embeddings.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/recollect-ai/recollect-go/pkg/embedder"
)

// Provider is a hash-based mock embedder.
type Provider struct {
	dimensions int
}

// New creates a mock embedder producing vectors of the given dimension.
// A dimension of 0 defaults to 64.
func New(dimensions int) *Provider {
	if dimensions == 0 {
		dimensions = 64
	}
	return &Provider{dimensions: dimensions}
}

// Embed converts a text string into a deterministic vector embedding.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float64, p.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vector[int(h.Sum32())%p.dimensions] += 1.0
	}

	// Normalize to unit length so cosine similarity behaves like production embedders.
	var sum float64
	for _, v := range vector {
		sum += v * v
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for i := range vector {
			vector[i] /= norm
		}
	}

	return vector, nil
}

// EmbedBatch converts multiple text strings into vector embeddings.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimensions returns the dimension of embedding vectors produced by this provider.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close implements embedder.Provider.
func (p *Provider) Close() error {
	return nil
}

var _ embedder.Provider = (*Provider)(nil)
