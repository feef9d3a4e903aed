// Package review streams code reviews of GitHub pull requests. The diff
// between a PR's head and its true base branch is split per file,
// chunked, and fed whole to the completion backend; no retrieval step is
// involved.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/chunker"
	"github.com/codescoutco/codescout/pkg/eventstream"
	"github.com/codescoutco/codescout/pkg/eventstream/nop"
	"github.com/codescoutco/codescout/pkg/ghpr"
	"github.com/codescoutco/codescout/pkg/llm"
	"github.com/codescoutco/codescout/pkg/retrieval"
	"github.com/codescoutco/codescout/pkg/utils"
)

const (
	// NoChangesMessage is emitted verbatim when the PR diff is empty.
	NoChangesMessage = "No changes found in PR"

	// DefaultMaxContextBytes caps the assembled diff context. Files past
	// the cap are dropped whole, later files first.
	DefaultMaxContextBytes = 200_000
)

// Git covers the local repository operations the pipeline needs.
type Git interface {
	EnsureClone(ctx context.Context, url string, dir string) (string, error)
	FetchPullHead(ctx context.Context, repoPath string, prNumber int) error
	FetchBranch(ctx context.Context, repoPath string, branch string) error
	Diff(ctx context.Context, repoPath string, baseRef string, headRef string) (string, error)
}

// BaseResolver resolves a pull request's actual base branch.
type BaseResolver interface {
	BaseBranch(ctx context.Context, ref ghpr.Ref) (string, error)
}

type Reviewer struct {
	git             Git
	resolver        BaseResolver
	completer       llm.Completer
	events          eventstream.Publisher
	chunkSize       int
	maxContextBytes int
	logger          *zap.Logger
}

type Config struct {
	Git       Git
	Resolver  BaseResolver
	Completer llm.Completer

	// Events receives lifecycle events; nil disables publishing
	Events eventstream.Publisher

	// ChunkSize overrides chunker.DefaultChunkSize when > 0
	ChunkSize int

	// MaxContextBytes overrides DefaultMaxContextBytes when > 0
	MaxContextBytes int

	Logger *zap.Logger
}

func New(cfg *Config) *Reviewer {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	maxContextBytes := cfg.MaxContextBytes
	if maxContextBytes <= 0 {
		maxContextBytes = DefaultMaxContextBytes
	}
	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reviewer{
		git:             cfg.Git,
		resolver:        cfg.Resolver,
		completer:       cfg.Completer,
		events:          events,
		chunkSize:       chunkSize,
		maxContextBytes: maxContextBytes,
		logger:          logger,
	}
}

// Stream reviews the pull request at prURL, forwarding review tokens to
// sink in generation order. An empty diff writes NoChangesMessage and
// stops without invoking the completion backend.
func (r *Reviewer) Stream(ctx context.Context, prURL string, sink func(token string) error) error {
	started := time.Now()

	ref, err := ghpr.ParsePRURL(prURL)
	if err != nil {
		return err
	}

	repoPath, err := r.git.EnsureClone(ctx, ref.CloneURL(), ref.LocalDir())
	if err != nil {
		return fmt.Errorf("preparing clone for %s/%s: %w", ref.Owner, ref.Repo, err)
	}

	if err := r.git.FetchPullHead(ctx, repoPath, ref.Number); err != nil {
		return fmt.Errorf("fetching PR head: %w", err)
	}

	base, err := r.resolver.BaseBranch(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolving base branch: %w", err)
	}

	if err := r.git.FetchBranch(ctx, repoPath, base); err != nil {
		return fmt.Errorf("fetching base branch %s: %w", base, err)
	}

	baseRef := "origin/" + base
	headRef := fmt.Sprintf("origin/pr/%d", ref.Number)
	diff, err := r.git.Diff(ctx, repoPath, baseRef, headRef)
	if err != nil {
		return fmt.Errorf("diffing %s..%s: %w", baseRef, headRef, err)
	}

	if strings.TrimSpace(diff) == "" {
		r.logger.Info("empty diff, nothing to review",
			zap.String("pr", prURL),
			zap.String("base", base),
		)
		return sink(NoChangesMessage)
	}

	files := SplitDiff(diff)
	context, included, truncated := r.assembleContext(files)
	if truncated {
		r.logger.Warn("review context truncated",
			zap.String("pr", prURL),
			zap.Int("includedFiles", included),
			zap.Int("totalFiles", len(files)),
		)
	}

	prompt := retrieval.ReviewPrompt(context)

	tokens, err := r.completer.Stream(ctx, prompt)
	if err != nil {
		return fmt.Errorf("starting review: %w", err)
	}

	if _, err := llm.Collect(ctx, tokens, sink); err != nil {
		return err
	}

	r.publishReview(ctx, prURL, included, truncated, time.Since(started))

	return nil
}

// assembleContext chunks each file's diff body and joins the labeled
// blocks, including whole files in diff order until the byte cap would
// be exceeded.
func (r *Reviewer) assembleContext(files []FileDiff) (string, int, bool) {
	const separator = "\n---\n"

	var sb strings.Builder
	included := 0

	for _, file := range files {
		chunks := chunker.ChunkContent(file.Body, file.Path, r.chunkSize)
		if len(chunks) == 0 {
			continue
		}

		block := retrieval.AssembleContext(chunks)
		if sb.Len() > 0 && sb.Len()+len(separator)+len(block) > r.maxContextBytes {
			return sb.String(), included, true
		}

		if sb.Len() > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(block)
		included++
	}

	return sb.String(), included, false
}

func (r *Reviewer) publishReview(ctx context.Context, prURL string, files int, truncated bool, elapsed time.Duration) {
	event := eventstream.NewEvent(
		eventstream.EventTypeReviewCompleted,
		eventstream.EventSource{Service: "codescout", Version: utils.Version},
		uuid.NewString(),
	)
	event.Review = &eventstream.ReviewMeta{
		PRURL:      prURL,
		Files:      files,
		Truncated:  truncated,
		DurationMs: elapsed.Milliseconds(),
	}

	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish review event", zap.Error(err))
	}
}
