// Package chat orchestrates the question answering pipeline: embed the
// question once, consult the semantic cache, and on a miss retrieve
// context and stream a fresh completion, caching the full answer only
// after it completes cleanly.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/cache"
	"github.com/codescoutco/codescout/pkg/embeddings"
	"github.com/codescoutco/codescout/pkg/eventstream"
	"github.com/codescoutco/codescout/pkg/eventstream/nop"
	"github.com/codescoutco/codescout/pkg/llm"
	"github.com/codescoutco/codescout/pkg/retrieval"
	"github.com/codescoutco/codescout/pkg/utils"
)

type Chat struct {
	embedder  embeddings.Embedder
	cache     *cache.Cache
	retriever *retrieval.Retriever
	completer llm.Completer
	events    eventstream.Publisher
	logger    *zap.Logger
}

type Config struct {
	Embedder  embeddings.Embedder
	Cache     *cache.Cache
	Retriever *retrieval.Retriever
	Completer llm.Completer

	// Events receives lifecycle events; nil disables publishing
	Events eventstream.Publisher

	Logger *zap.Logger
}

func New(cfg *Config) *Chat {
	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Chat{
		embedder:  cfg.Embedder,
		cache:     cfg.Cache,
		retriever: cfg.Retriever,
		completer: cfg.Completer,
		events:    events,
		logger:    logger,
	}
}

// Stream answers the question, forwarding tokens to sink in generation
// order. A semantic cache hit is written to sink in one piece without
// touching retrieval or the completion backend. A freshly generated
// answer is cached only after the stream ends cleanly; cancellation and
// sink failures leave the cache untouched.
func (c *Chat) Stream(ctx context.Context, question string, sink func(token string) error) error {
	started := time.Now()

	embedding, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("embedding question: %w", err)
	}

	entry, err := c.cache.Lookup(ctx, embedding)
	if err != nil {
		// A broken cache degrades to a miss; the chat must still answer.
		c.logger.Warn("semantic cache lookup failed", zap.Error(err))
	}
	if entry != nil {
		if err := sink(entry.Answer); err != nil {
			return err
		}
		c.publishAnswer(ctx, true, 0, false, time.Since(started))
		return nil
	}

	chunks, err := c.retriever.RetrieveEmbedding(ctx, embedding)
	if err != nil {
		return fmt.Errorf("retrieving context: %w", err)
	}

	prompt := retrieval.ChatPrompt(retrieval.AssembleContext(chunks), question)

	tokens, err := c.completer.Stream(ctx, prompt)
	if err != nil {
		return fmt.Errorf("starting completion: %w", err)
	}

	answer, err := llm.Collect(ctx, tokens, sink)
	if err != nil {
		c.publishAnswer(context.WithoutCancel(ctx), false, len(chunks), true, time.Since(started))
		return err
	}

	if err := c.cache.Store(ctx, embedding, question, answer); err != nil {
		// The answer already reached the caller; a failed cache write is
		// not a failed chat.
		c.logger.Warn("failed to store answer in semantic cache", zap.Error(err))
	}

	c.publishAnswer(ctx, false, len(chunks), false, time.Since(started))

	return nil
}

// Ask is the buffered variant of Stream, returning the full answer.
func (c *Chat) Ask(ctx context.Context, question string) (string, error) {
	var sb strings.Builder
	err := c.Stream(ctx, question, func(token string) error {
		sb.WriteString(token)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *Chat) publishAnswer(ctx context.Context, cacheHit bool, contextChunks int, cancelled bool, elapsed time.Duration) {
	event := eventstream.NewEvent(
		eventstream.EventTypeAnswerServed,
		eventstream.EventSource{Service: "codescout", Version: utils.Version},
		uuid.NewString(),
	)
	event.Chat = &eventstream.ChatMeta{
		CacheHit:      cacheHit,
		ContextChunks: contextChunks,
		Cancelled:     cancelled,
		DurationMs:    elapsed.Milliseconds(),
	}

	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish chat event", zap.Error(err))
	}
}
