package llm

import (
	"context"
	"strings"
)

// Collect drains a token stream, forwarding each token to sink in order
// while accumulating the full answer. It returns the accumulated text and
// nil only after the stream closed cleanly; on cancellation or a sink
// failure it returns the partial text and the error, so callers can tell a
// complete answer apart from a truncated one (a truncated answer must not
// be cached).
func Collect(ctx context.Context, tokens <-chan string, sink func(token string) error) (string, error) {
	var full strings.Builder

	for {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		case token, ok := <-tokens:
			if !ok {
				// Closed channel: end-of-stream. If the context was
				// cancelled the producer closes early, so check it to
				// avoid treating a truncated stream as complete.
				if err := ctx.Err(); err != nil {
					return full.String(), err
				}
				return full.String(), nil
			}
			full.WriteString(token)
			if err := sink(token); err != nil {
				return full.String(), err
			}
		}
	}
}
