// Package vector provides the interface and implementations for vector
// storage: named collections of embedding points with payloads, searched by
// cosine similarity.
package vector

import "context"

const (
	// CollectionCodebase holds embedded code chunks.
	CollectionCodebase = "codebase"

	// CollectionSemanticCache holds prior question vectors and their answers.
	CollectionSemanticCache = "semantic_cache"
)

// Point is an indexed vector with its payload.
type Point struct {
	// ID is a unique identifier for the point (a UUID string).
	ID string

	// Vector is the embedding for this point.
	Vector []float32

	// Payload is arbitrary metadata stored alongside the vector.
	Payload map[string]any
}

// Result is a ranked search hit.
type Result struct {
	// ID is the matched point's identifier.
	ID string

	// Score is the cosine similarity score (higher = more similar).
	Score float32

	// Payload is the matched point's stored metadata.
	Payload map[string]any
}

// Driver handles storage and retrieval of vector embeddings across named
// collections. All collections use cosine distance.
type Driver interface {
	// EnsureCollection creates the named collection with the given vector
	// size if it does not already exist. An existing collection is reused
	// as-is; implementations log a warning if its size differs.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error

	// Upsert stores points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search finds the limit most similar points to the given embedding,
	// most similar first. A non-nil scoreThreshold drops results whose
	// similarity falls below it.
	Search(ctx context.Context, collection string, embedding []float32, limit uint64, scoreThreshold *float32) ([]Result, error)

	// Close releases any resources held by the driver.
	Close() error
}
