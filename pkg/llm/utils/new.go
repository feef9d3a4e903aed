// Package llmutils is the completion backend utility package
package llmutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/llm"
	"github.com/codescoutco/codescout/pkg/llm/ollama"
)

type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Logger       *zap.Logger
}

// NewCompleter constructs a completer from the configured provider type.
func NewCompleter(o *NewCompleterOpts) (llm.Completer, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewCompleter(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", o.ProviderType)
	}
}
