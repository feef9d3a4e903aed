// Package ingestcmder provides the ingest command for indexing repositories.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/cliui"
	"github.com/codescoutco/codescout/pkg/config"
	"github.com/codescoutco/codescout/pkg/dotdir"
	embeddingutils "github.com/codescoutco/codescout/pkg/embeddings/utils"
	eventstreamutils "github.com/codescoutco/codescout/pkg/eventstream/utils"
	"github.com/codescoutco/codescout/pkg/gitrepo"
	"github.com/codescoutco/codescout/pkg/ingest"
	"github.com/codescoutco/codescout/pkg/logger"
	"github.com/codescoutco/codescout/pkg/vector"
	vectorutils "github.com/codescoutco/codescout/pkg/vector/utils"
)

type ingestCommander struct {
	target string
	watch  bool

	vectorProvider    string
	vectorTarget      string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	chunkSize         uint
	eventsProvider    string

	configDir string
	debug     bool

	v      *viper.Viper
	logger *zap.Logger
}

var ingestFlags = config.FlagSet{
	config.FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector store provider (qdrant, sqlitevec)",
	},
	config.FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Vector store target (qdrant host:port or sqlite-vec database path)",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "ingest.chunk_size",
		Description: "Number of lines per chunk when indexing files",
	},
	config.FlagEventsProv: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Event stream provider (nop, kafka)",
	},
}

var ingestFlagKeys = []string{
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChunkSize,
	config.FlagEventsProv,
}

const ingestLongDesc string = `Index a repository into the vector store.

Given a repository URL, clones it fresh, chunks every supported source
file, embeds each chunk, and upserts the vectors. Supported extensions:
js, ts, jsx, tsx, py, java, go, md, css, html.

With --watch, the argument is a local directory: existing files are
indexed, then the directory is watched and changed files are re-indexed
on write. Press Ctrl+C to stop watching.

Examples:
  codescout ingest https://github.com/gofiber/fiber
  codescout ingest --watch ./my-project`

const ingestShortDesc string = "Index a repository into the vector store"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <repo-url | dir>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, ingestFlags, ingestFlagKeys)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.target = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, ingestFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, ingestFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, ingestFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddUintFlag(cmd, ingestFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEventsProv, &cmder.eventsProvider)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Watch a local directory and re-index on change")

	return cmd
}

func (c *ingestCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := c.newVectorDriver()
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	dims := c.v.GetUint("embedding.dimensions")
	if err := store.EnsureCollection(ctx, vector.CollectionCodebase, uint64(dims)); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.v.GetString("embedding.provider"),
		TargetURL:    c.v.GetString("embedding.target"),
		Model:        c.v.GetString("embedding.model"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	events, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.v.GetString("events.provider"),
		Brokers:      c.v.GetStringSlice("events.brokers"),
		Topic:        c.v.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer events.Close()

	reposDir, err := dotdir.NewManager().Subdir(c.configDir, "repos")
	if err != nil {
		return fmt.Errorf("resolving repos dir: %w", err)
	}
	git := gitrepo.New(reposDir, c.logger)

	ingester := ingest.New(&ingest.Config{
		Source:     git,
		Store:      store,
		Embedder:   embedder,
		Events:     events,
		ChunkSize:  int(c.v.GetUint("ingest.chunk_size")),
		Dimensions: int(dims),
		Logger:     c.logger,
	})

	if c.watch {
		return c.runWatch(ctx, ingester, git)
	}
	return c.runRepo(ctx, ingester)
}

func (c *ingestCommander) runRepo(ctx context.Context, ingester *ingest.Ingester) error {
	var report *ingest.Report

	err := cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s", c.target), func() error {
		var stepErr error
		report, stepErr = ingester.Repo(ctx, c.target)
		return stepErr
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", c.target, err)
	}

	fmt.Printf("\n  %s Indexed %d files (%d chunks)\n", cliui.SuccessMark, report.Files, report.Chunks)
	for _, failure := range report.Failures {
		fmt.Printf("  %s %s: %v\n", cliui.FailMark, failure.Path, failure.Err)
	}
	fmt.Println()

	return nil
}

func (c *ingestCommander) runWatch(ctx context.Context, ingester *ingest.Ingester, git *gitrepo.Client) error {
	root, err := filepath.Abs(c.target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", c.target, err)
	}

	// Index what is already there before watching for changes.
	files, err := git.WalkFiles(root)
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}

	indexed := 0
	for _, file := range files {
		if !ingest.IngestablePath(file) {
			continue
		}

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}

		if _, err := ingester.File(ctx, file, rel); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("  %s %s: %v\n", cliui.FailMark, rel, err)
			continue
		}
		indexed++
	}

	fmt.Printf("\n  %s Indexed %d files, watching %s\n\n", cliui.SuccessMark, indexed, root)

	if err := ingester.Watch(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	return nil
}

func (c *ingestCommander) newVectorDriver() (vector.Driver, error) {
	provider := c.v.GetString("vector_store.provider")
	target := c.v.GetString("vector_store.target")

	if provider == "sqlitevec" {
		if path := c.v.GetString("storage.sqlite_path"); path != "" {
			target = path
		}
		if target == "" || target == config.NewDefaultConfig().VectorStore.Target {
			dir, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, err
			}
			target = filepath.Join(dir, "codescout.db")
		}
	}

	return vectorutils.NewDriver(&vectorutils.NewDriverOpts{
		ProviderType: provider,
		Target:       target,
		Logger:       c.logger,
	})
}
