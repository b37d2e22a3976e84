// Package embedder defines the text embedding boundary behind the vector
// index. Backends live in subpackages: openai and a deterministic mock for
// tests.
package embedder

import "context"

// Provider is implemented by every embedding backend.
type Provider interface {
	// Embed returns the embedding vector for one text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch embeds several texts, in order, in a single round trip
	// where the backend supports batching.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions reports the length of the vectors this provider produces.
	Dimensions() int

	// Close releases any connections held by the backend.
	Close() error
}
