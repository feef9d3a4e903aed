// Package embeddings
package embeddings

import "context"

// Embedder turns text into the fixed-dimension vectors stored in the
// codebase and semantic cache collections. The same embedder must serve
// both indexing and querying so distances stay comparable.
type Embedder interface {
	// Embed returns the vector for a piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
