// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/vector"
)

const (
	// DefaultHost is the default Qdrant host.
	DefaultHost = "localhost"

	// DefaultPort is the default Qdrant gRPC port.
	DefaultPort = 6334
)

// Driver implements vector.Driver using the Qdrant gRPC client.
type Driver struct {
	client *qdrant.Client
	logger *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address (e.g. "localhost:6334").
	// Defaults to DefaultHost:DefaultPort if empty.
	Target string
}

// NewDriver creates a new Qdrant vector driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	host := DefaultHost
	port := DefaultPort

	if c.Target != "" {
		h, p, err := net.SplitHostPort(c.Target)
		if err != nil {
			return nil, fmt.Errorf("parsing qdrant target %q: %w", c.Target, err)
		}
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parsing qdrant port %q: %w", p, err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant at %s:%d: %v", vector.ErrConnection, host, port, err)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", host),
		zap.Int("port", port),
	)

	return &Driver{
		client: client,
		logger: logger,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist. An existing collection is reused without reconciliation; a size
// mismatch is logged so later upsert failures are explainable.
func (d *Driver) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, name, err)
	}

	if exists {
		d.logger.Info("qdrant collection exists", zap.String("collection", name))
		d.warnOnSizeMismatch(ctx, name, vectorSize)
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}

	d.logger.Info("qdrant collection created",
		zap.String("collection", name),
		zap.Uint64("vector_size", vectorSize),
	)

	return nil
}

// warnOnSizeMismatch compares an existing collection's vector size against
// the expected one. Best effort only: a stale collection with a different
// dimension makes upserts fail later, and the warning is the breadcrumb.
func (d *Driver) warnOnSizeMismatch(ctx context.Context, name string, vectorSize uint64) {
	info, err := d.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return
	}

	if params.GetSize() != vectorSize {
		d.logger.Warn("existing collection vector size differs from configuration",
			zap.String("collection", name),
			zap.Uint64("existing_size", params.GetSize()),
			zap.Uint64("configured_size", vectorSize),
		)
	}
}

// Upsert stores points in the collection.
func (d *Driver) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points into %q: %w", len(points), collection, err)
	}

	d.logger.Debug("upserted points to qdrant",
		zap.String("collection", collection),
		zap.Int("count", len(points)),
	)

	return nil
}

// Search finds the limit most similar points to the given embedding.
func (d *Driver) Search(ctx context.Context, collection string, embedding []float32, limit uint64, scoreThreshold *float32) ([]vector.Result, error) {
	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		ScoreThreshold: scoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}

	results := make([]vector.Result, 0, len(scored))
	for _, point := range scored {
		results = append(results, vector.Result{
			ID:      pointIDString(point.GetId()),
			Score:   point.GetScore(),
			Payload: payloadToMap(point.GetPayload()),
		})
	}

	d.logger.Debug("searched qdrant",
		zap.String("collection", collection),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.client.Close()
}

// pointIDString extracts the string form of a point identifier.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// payloadToMap converts a Qdrant payload into plain Go values.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = valueToAny(item)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for key, item := range fields {
			out[key] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

var _ vector.Driver = (*Driver)(nil)
