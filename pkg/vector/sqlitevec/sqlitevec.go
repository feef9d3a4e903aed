// Package sqlitevec provides an embedded vector driver backed by SQLite with
// the sqlite-vec extension. Useful for single-binary deployments where running
// a Qdrant server is overkill.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
// Each collection maps to a point table plus a vec0 virtual table.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// collection names become table names, so restrict them
var collectionNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// Track each collection's configured dimension so EnsureCollection can
	// flag a stale database created with a different embedding model.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// EnsureCollection creates the point and vec0 tables for the collection if
// they do not exist. vec0 tables are fixed-dimension, so the size is baked
// into the virtual table declaration with cosine distance.
func (d *Driver) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	if vectorSize == 0 {
		return fmt.Errorf("vector size cannot be 0")
	}

	var existing uint64
	err := d.db.QueryRowContext(ctx,
		`SELECT dimensions FROM collections WHERE name = ?`, name,
	).Scan(&existing)

	switch err {
	case nil:
		if existing != vectorSize {
			d.logger.Warn("existing collection vector size differs from configuration",
				zap.String("collection", name),
				zap.Uint64("existing_size", existing),
				zap.Uint64("configured_size", vectorSize),
			)
		}
		d.logger.Info("sqlite-vec collection exists", zap.String("collection", name))
		return nil
	case sql.ErrNoRows:
		// fall through and create
	default:
		return fmt.Errorf("checking collection %q: %w", name, err)
	}

	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS points_%s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			point_id TEXT NOT NULL UNIQUE,
			payload TEXT NOT NULL DEFAULT '{}'
		)
	`, name)); err != nil {
		return fmt.Errorf("creating points table for %q: %w", name, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_%s USING vec0(embedding float[%d] distance_metric=cosine)`,
		name, vectorSize,
	)
	if _, err := d.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table for %q: %w", name, err)
	}

	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO collections(name, dimensions) VALUES (?, ?)`,
		name, vectorSize,
	); err != nil {
		return fmt.Errorf("registering collection %q: %w", name, err)
	}

	d.logger.Info("sqlite-vec collection created",
		zap.String("collection", name),
		zap.Uint64("vector_size", vectorSize),
	)

	return nil
}

// Upsert stores points in the collection. Existing point IDs are replaced.
func (d *Driver) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}
	if !collectionNameRe.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		embBlob, err := serializeFloat32(p.Vector)
		if err != nil {
			return fmt.Errorf("serializing embedding for point %s: %w", p.ID, err)
		}

		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for point %s: %w", p.ID, err)
		}

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM points_%s WHERE point_id = ?`, collection), p.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE points_%s SET payload = ? WHERE rowid = ?`, collection),
				string(payloadJSON), existingRowID,
			); err != nil {
				return fmt.Errorf("updating point %s: %w", p.ID, err)
			}

			// vec0 does not support UPDATE, so replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM vec_%s WHERE rowid = ?`, collection), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for point %s: %w", p.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO vec_%s(rowid, embedding) VALUES (?, ?)`, collection),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for point %s: %w", p.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO points_%s(point_id, payload) VALUES (?, ?)`, collection),
				p.ID, string(payloadJSON),
			)
			if err != nil {
				return fmt.Errorf("inserting point %s: %w", p.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for point %s: %w", p.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO vec_%s(rowid, embedding) VALUES (?, ?)`, collection),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for point %s: %w", p.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted points to sqlite-vec",
		zap.String("collection", collection),
		zap.Int("count", len(points)),
	)

	return nil
}

// Search finds the limit most similar points via a vec0 KNN query.
func (d *Driver) Search(ctx context.Context, collection string, embedding []float32, limit uint64, scoreThreshold *float32) ([]vector.Result, error) {
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}

	queryBlob, err := serializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serializing query embedding: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			p.point_id,
			p.payload,
			ve.distance
		FROM vec_%s ve
		INNER JOIN points_%s p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, collection, collection), queryBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var pointID, payloadJSON string
		var distance float64
		if err := rows.Scan(&pointID, &payloadJSON, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// cosine distance = 1 - cosine similarity
		score := float32(1.0 - distance)
		if scoreThreshold != nil && score < *scoreThreshold {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("unmarshaling payload for point %s: %w", pointID, err)
		}

		results = append(results, vector.Result{
			ID:      pointID,
			Score:   score,
			Payload: payload,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("searched sqlite-vec",
		zap.String("collection", collection),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

var _ vector.Driver = (*Driver)(nil)
