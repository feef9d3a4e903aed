// Package cache implements a semantic answer cache on top of the vector
// store. Questions are matched by cosine similarity of their embeddings,
// so a rephrased question can still hit a previously generated answer.
//
// Callers embed the question once and reuse the vector for lookup,
// retrieval, and store; the cache never embeds anything itself.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/vector"
)

const (
	// DefaultThreshold is the minimum similarity score for a cached
	// answer to count as a hit.
	DefaultThreshold float32 = 0.6

	payloadQuestion  = "question"
	payloadAnswer    = "answer"
	payloadCreatedAt = "createdAt"
)

// Entry is a cached question/answer pair returned on a hit.
type Entry struct {
	Question  string
	Answer    string
	Score     float32
	CreatedAt string
}

type Cache struct {
	store     vector.Driver
	threshold float32
	logger    *zap.Logger
}

type Config struct {
	Store vector.Driver

	// Threshold overrides DefaultThreshold when > 0
	Threshold float32

	Logger *zap.Logger
}

func New(cfg *Config) *Cache {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		store:     cfg.Store,
		threshold: threshold,
		logger:    logger,
	}
}

// Lookup searches the semantic cache collection for the single closest
// prior question. It returns nil on a miss.
func (c *Cache) Lookup(ctx context.Context, embedding []float32) (*Entry, error) {
	threshold := c.threshold
	results, err := c.store.Search(ctx, vector.CollectionSemanticCache, embedding, 1, &threshold)
	if err != nil {
		return nil, fmt.Errorf("searching semantic cache: %w", err)
	}
	if len(results) == 0 {
		c.logger.Debug("semantic cache miss")
		return nil, nil
	}

	hit := results[0]
	entry := &Entry{Score: hit.Score}
	if q, ok := hit.Payload[payloadQuestion].(string); ok {
		entry.Question = q
	}
	if a, ok := hit.Payload[payloadAnswer].(string); ok {
		entry.Answer = a
	}
	if ts, ok := hit.Payload[payloadCreatedAt].(string); ok {
		entry.CreatedAt = ts
	}

	c.logger.Debug("semantic cache hit",
		zap.Float32("score", hit.Score),
		zap.String("cachedQuestion", entry.Question),
	)

	return entry, nil
}

// Store writes a fresh question/answer pair into the cache under the
// question's embedding. Callers must only store answers that completed
// cleanly; a truncated answer served from the cache would be wrong forever.
func (c *Cache) Store(ctx context.Context, embedding []float32, question string, answer string) error {
	point := vector.Point{
		ID:     uuid.NewString(),
		Vector: embedding,
		Payload: map[string]any{
			payloadQuestion:  question,
			payloadAnswer:    answer,
			payloadCreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := c.store.Upsert(ctx, vector.CollectionSemanticCache, []vector.Point{point}); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}

	c.logger.Debug("stored semantic cache entry", zap.String("question", question))

	return nil
}
