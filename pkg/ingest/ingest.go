// Package ingest indexes source repositories into the vector store:
// files are chunked, embedded, and upserted with their location payloads.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/chunker"
	"github.com/codescoutco/codescout/pkg/embeddings"
	"github.com/codescoutco/codescout/pkg/eventstream"
	"github.com/codescoutco/codescout/pkg/eventstream/nop"
	"github.com/codescoutco/codescout/pkg/utils"
	"github.com/codescoutco/codescout/pkg/vector"
)

const (
	// DefaultDimensions is the expected embedding length; vectors of any
	// other length are discarded rather than poisoning the collection.
	DefaultDimensions = 768

	// DefaultConcurrency bounds parallel embedding calls within one file.
	DefaultConcurrency = 4
)

// allowedExtensions is the ingestion allow-list of source and markup files.
var allowedExtensions = regexp.MustCompile(`(?i)\.(js|ts|jsx|tsx|py|java|go|md|css|html)$`)

// RepoSource provides fresh local working copies of remote repositories.
type RepoSource interface {
	CloneFresh(ctx context.Context, url string) (string, error)
	WalkFiles(root string) ([]string, error)
}

// FileFailure records a file that could not be ingested.
type FileFailure struct {
	Path string
	Err  error
}

// Report summarizes one repository ingestion.
type Report struct {
	Files    int
	Chunks   int
	Failures []FileFailure
}

type Ingester struct {
	source      RepoSource
	store       vector.Driver
	embedder    embeddings.Embedder
	events      eventstream.Publisher
	chunkSize   int
	dimensions  int
	concurrency int
	logger      *zap.Logger
}

type Config struct {
	Source   RepoSource
	Store    vector.Driver
	Embedder embeddings.Embedder

	// Events receives lifecycle events; nil disables publishing
	Events eventstream.Publisher

	// ChunkSize overrides chunker.DefaultChunkSize when > 0
	ChunkSize int

	// Dimensions overrides DefaultDimensions when > 0
	Dimensions int

	// Concurrency overrides DefaultConcurrency when > 0
	Concurrency int

	Logger *zap.Logger
}

func New(cfg *Config) *Ingester {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ingester{
		source:      cfg.Source,
		store:       cfg.Store,
		embedder:    cfg.Embedder,
		events:      events,
		chunkSize:   chunkSize,
		dimensions:  dimensions,
		concurrency: concurrency,
		logger:      logger,
	}
}

// IngestablePath reports whether a path passes the extension allow-list
// and is not under a .git directory.
func IngestablePath(path string) bool {
	normalized := filepath.ToSlash(path)
	if strings.Contains(normalized, "/.git/") || strings.HasPrefix(normalized, ".git/") {
		return false
	}
	return allowedExtensions.MatchString(normalized)
}

// Repo clones the repository fresh and ingests every allowed file. A file
// that fails does not abort the rest; failures are collected in the report.
func (i *Ingester) Repo(ctx context.Context, repoURL string) (*Report, error) {
	started := time.Now()

	localPath, err := i.source.CloneFresh(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	files, err := i.source.WalkFiles(localPath)
	if err != nil {
		return nil, fmt.Errorf("listing files in %s: %w", localPath, err)
	}

	report := &Report{}
	for _, file := range files {
		if !IngestablePath(file) {
			continue
		}

		logicalPath, err := filepath.Rel(localPath, file)
		if err != nil {
			logicalPath = file
		}
		logicalPath = filepath.ToSlash(logicalPath)

		chunks, err := i.File(ctx, file, logicalPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			i.logger.Warn("failed to ingest file",
				zap.String("path", logicalPath),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, FileFailure{Path: logicalPath, Err: err})
			continue
		}

		report.Files++
		report.Chunks += chunks
	}

	i.logger.Info("repository indexed",
		zap.String("repo", repoURL),
		zap.Int("files", report.Files),
		zap.Int("chunks", report.Chunks),
		zap.Int("failures", len(report.Failures)),
	)

	i.publishIngested(ctx, repoURL, report, time.Since(started))

	return report, nil
}

// File reads a local file and ingests its content under the logical path
// recorded in chunk payloads. Returns the number of chunks upserted.
func (i *Ingester) File(ctx context.Context, localPath string, logicalPath string) (int, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", localPath, err)
	}
	return i.Content(ctx, string(content), logicalPath)
}

// Content chunks, embeds, and upserts raw file content. Blank files and
// blank chunks are skipped; embeddings of the wrong length are discarded
// with a warning.
func (i *Ingester) Content(ctx context.Context, content string, logicalPath string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, nil
	}

	chunks := chunker.ChunkContent(content, logicalPath, i.chunkSize)

	embeddable := make([]chunker.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Code) == "" {
			continue
		}
		embeddable = append(embeddable, chunk)
	}
	if len(embeddable) == 0 {
		return 0, nil
	}

	vectors, err := i.embedAll(ctx, embeddable)
	if err != nil {
		return 0, err
	}

	points := make([]vector.Point, 0, len(embeddable))
	for idx, chunk := range embeddable {
		if len(vectors[idx]) != i.dimensions {
			i.logger.Warn("discarding embedding of unexpected length",
				zap.String("file", chunk.FilePath),
				zap.Int("startLine", chunk.StartLine),
				zap.Int("endLine", chunk.EndLine),
				zap.Int("got", len(vectors[idx])),
				zap.Int("want", i.dimensions),
			)
			continue
		}
		points = append(points, vector.Point{
			ID:      uuid.NewString(),
			Vector:  vectors[idx],
			Payload: chunk.Payload(),
		})
	}
	if len(points) == 0 {
		return 0, nil
	}

	if err := i.store.Upsert(ctx, vector.CollectionCodebase, points); err != nil {
		return 0, fmt.Errorf("upserting %s: %w", logicalPath, err)
	}

	i.logger.Debug("ingested file",
		zap.String("path", logicalPath),
		zap.Int("chunks", len(points)),
	)

	return len(points), nil
}

// embedAll embeds chunks with bounded parallelism, preserving order.
// Embedding calls are independent and idempotent, so call order within a
// file does not matter; result order does.
func (i *Ingester) embedAll(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	errs := make([]error, len(chunks))

	sem := make(chan struct{}, i.concurrency)
	var wg sync.WaitGroup
	for idx, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, code string) {
			defer wg.Done()
			defer func() { <-sem }()
			vectors[idx], errs[idx] = i.embedder.Embed(ctx, code)
		}(idx, chunk.Code)
	}
	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embedding %s:%d-%d: %w", chunks[idx].FilePath, chunks[idx].StartLine, chunks[idx].EndLine, err)
		}
	}

	return vectors, nil
}

func (i *Ingester) publishIngested(ctx context.Context, repoURL string, report *Report, elapsed time.Duration) {
	event := eventstream.NewEvent(
		eventstream.EventTypeRepoIngested,
		eventstream.EventSource{Service: "codescout", Version: utils.Version},
		uuid.NewString(),
	)
	event.Ingest = &eventstream.IngestMeta{
		RepoURL:    repoURL,
		Files:      report.Files,
		Chunks:     report.Chunks,
		Failures:   len(report.Failures),
		DurationMs: elapsed.Milliseconds(),
	}

	if err := i.events.Publish(ctx, event); err != nil {
		i.logger.Warn("failed to publish ingest event", zap.Error(err))
	}
}
