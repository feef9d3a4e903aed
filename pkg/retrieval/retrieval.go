// Package retrieval finds the code chunks most relevant to a question
// and assembles them into prompts for the completion backend.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/chunker"
	"github.com/codescoutco/codescout/pkg/embeddings"
	"github.com/codescoutco/codescout/pkg/vector"
)

// DefaultLimit is the number of chunks pulled into a chat prompt.
const DefaultLimit uint64 = 5

type Retriever struct {
	store    vector.Driver
	embedder embeddings.Embedder
	limit    uint64
	logger   *zap.Logger
}

type Config struct {
	Store    vector.Driver
	Embedder embeddings.Embedder

	// Limit overrides DefaultLimit when > 0
	Limit uint64

	Logger *zap.Logger
}

func New(cfg *Config) *Retriever {
	limit := cfg.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		limit:    limit,
		logger:   logger,
	}
}

// Retrieve embeds the question and returns the closest code chunks from
// the codebase collection.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]chunker.Chunk, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	return r.RetrieveEmbedding(ctx, embedding)
}

// RetrieveEmbedding returns the closest code chunks for an already
// computed query embedding. No score threshold is applied; the prompt
// template instructs the model how to handle weak context.
func (r *Retriever) RetrieveEmbedding(ctx context.Context, embedding []float32) ([]chunker.Chunk, error) {
	results, err := r.store.Search(ctx, vector.CollectionCodebase, embedding, r.limit, nil)
	if err != nil {
		return nil, fmt.Errorf("searching codebase: %w", err)
	}

	chunks := make([]chunker.Chunk, 0, len(results))
	for _, res := range results {
		chunk, ok := chunker.FromPayload(res.Payload)
		if !ok {
			r.logger.Warn("skipping result with malformed payload", zap.String("id", res.ID))
			continue
		}
		chunks = append(chunks, chunk)
	}

	r.logger.Debug("retrieved context",
		zap.Int("chunks", len(chunks)),
		zap.Uint64("limit", r.limit),
	)

	return chunks, nil
}
