package testutils

import (
	"context"

	"github.com/codescoutco/codescout/pkg/eventstream"
)

// MockPublisher records every published event.
type MockPublisher struct {
	Events []*eventstream.Event
	Closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.Closed = true
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
