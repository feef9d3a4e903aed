package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	// Embeddings maps input text to a fixed vector
	Embeddings map[string][]float32

	// Dimensions is the length of the default vector returned for unmapped
	// text (defaults to 3)
	Dimensions int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Calls records every embedded text in order
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dimensions: 3,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding of the configured dimension for any text
	emb := make([]float32, m.Dimensions)
	for i := range emb {
		emb[i] = 0.1 * float32(i+1)
	}
	return emb, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
