package testutils

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockCompleter is a test completion backend that replays fixed tokens.
type MockCompleter struct {
	// Tokens are streamed one by one from Stream and joined for Complete
	Tokens []string

	// Prompts records every prompt sent, streaming or not
	Prompts []string

	// FailConnect forces Stream and Complete to fail immediately
	FailConnect bool

	// TokenDelay, when set, is slept before each streamed token so
	// generation outlives the caller that started it
	TokenDelay time.Duration
}

func NewMockCompleter(tokens ...string) *MockCompleter {
	return &MockCompleter{Tokens: tokens}
}

func (m *MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if m.FailConnect {
		return "", fmt.Errorf("mock completion failure")
	}
	m.Prompts = append(m.Prompts, prompt)
	return strings.Join(m.Tokens, ""), nil
}

func (m *MockCompleter) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	if m.FailConnect {
		return nil, fmt.Errorf("mock completion failure")
	}
	m.Prompts = append(m.Prompts, prompt)

	ch := make(chan string, len(m.Tokens))
	go func() {
		defer close(ch)
		for _, tok := range m.Tokens {
			if m.TokenDelay > 0 {
				time.Sleep(m.TokenDelay)
			}
			select {
			case ch <- tok:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (m *MockCompleter) Close() error {
	return nil
}
