// Package llm provides the completion backend interface and the streaming
// controller that tees tokens to a consumer while accumulating the full
// answer.
package llm

import (
	"context"
	"errors"
)

// ErrCompletion is returned when the completion backend is unreachable or
// the initial connection cannot be established.
var ErrCompletion = errors.New("completion backend failed")

// Completer generates text from a prompt.
type Completer interface {
	// Complete returns the full generated answer in one response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream returns an ordered channel of text tokens. The channel is
	// closed on end-of-stream or when ctx is cancelled. The stream is
	// finite and not restartable.
	Stream(ctx context.Context, prompt string) (<-chan string, error)

	// Close releases any resources held by the completer.
	Close() error
}
