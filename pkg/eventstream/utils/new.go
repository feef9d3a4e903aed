// Package eventstreamutils is the eventstream publisher utility package
package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/eventstream"
	"github.com/codescoutco/codescout/pkg/eventstream/kafka"
	"github.com/codescoutco/codescout/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *zap.Logger
}

// NewPublisher constructs an event publisher from the configured provider
// type. An empty provider type disables publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(&kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.ProviderType)
	}
}
