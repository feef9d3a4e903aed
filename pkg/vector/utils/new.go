// Package vectorutils is the vector driver utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/vector"
	"github.com/codescoutco/codescout/pkg/vector/qdrant"
	"github.com/codescoutco/codescout/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
	Logger       *zap.Logger
}

// NewDriver constructs a vector driver from the configured provider type.
func NewDriver(o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Target: o.Target,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: o.Target,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
