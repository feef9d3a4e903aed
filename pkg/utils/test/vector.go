package testutils

import (
	"context"
	"fmt"

	"github.com/codescoutco/codescout/pkg/vector"
)

// SearchCall records the arguments of a single Search invocation.
type SearchCall struct {
	Collection string
	Embedding  []float32
	Limit      uint64
	Threshold  *float32
}

// MockStore is a test vector driver. Search results are configured per
// collection and filtered by the caller's threshold the way a real store
// would filter by score.
type MockStore struct {
	// Results maps collection name to the ranked results Search returns
	Results map[string][]vector.Result

	// Upserts maps collection name to every point ever upserted
	Upserts map[string][]vector.Point

	// Collections records EnsureCollection calls as name -> vector size
	Collections map[string]uint64

	// SearchCalls records every Search invocation in order
	SearchCalls []SearchCall

	// FailSearch and FailUpsert force the corresponding call to error
	FailSearch bool
	FailUpsert bool
}

func NewMockStore() *MockStore {
	return &MockStore{
		Results:     make(map[string][]vector.Result),
		Upserts:     make(map[string][]vector.Point),
		Collections: make(map[string]uint64),
	}
}

func (m *MockStore) EnsureCollection(_ context.Context, name string, vectorSize uint64) error {
	m.Collections[name] = vectorSize
	return nil
}

func (m *MockStore) Upsert(_ context.Context, collection string, points []vector.Point) error {
	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure")
	}
	m.Upserts[collection] = append(m.Upserts[collection], points...)
	return nil
}

func (m *MockStore) Search(_ context.Context, collection string, embedding []float32, limit uint64, threshold *float32) ([]vector.Result, error) {
	m.SearchCalls = append(m.SearchCalls, SearchCall{
		Collection: collection,
		Embedding:  embedding,
		Limit:      limit,
		Threshold:  threshold,
	})

	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure")
	}

	var out []vector.Result
	for _, r := range m.Results[collection] {
		if threshold != nil && r.Score < *threshold {
			continue
		}
		out = append(out, r)
		if uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockStore) Close() error {
	return nil
}

var _ vector.Driver = (*MockStore)(nil)
