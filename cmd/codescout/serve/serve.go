// Package servecmder provides the serve command for running the codescout server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/api"
	"github.com/codescoutco/codescout/api/mcp"
	"github.com/codescoutco/codescout/pkg/cache"
	"github.com/codescoutco/codescout/pkg/chat"
	"github.com/codescoutco/codescout/pkg/config"
	"github.com/codescoutco/codescout/pkg/dotdir"
	embeddingutils "github.com/codescoutco/codescout/pkg/embeddings/utils"
	eventstreamutils "github.com/codescoutco/codescout/pkg/eventstream/utils"
	"github.com/codescoutco/codescout/pkg/ghpr"
	"github.com/codescoutco/codescout/pkg/gitrepo"
	"github.com/codescoutco/codescout/pkg/ingest"
	llmutils "github.com/codescoutco/codescout/pkg/llm/utils"
	"github.com/codescoutco/codescout/pkg/logger"
	"github.com/codescoutco/codescout/pkg/retrieval"
	"github.com/codescoutco/codescout/pkg/review"
	"github.com/codescoutco/codescout/pkg/vector"
	vectorutils "github.com/codescoutco/codescout/pkg/vector/utils"
)

type ServeCommander struct {
	listen            string
	reposDir          string
	uploadsDir        string
	vectorProvider    string
	vectorTarget      string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	llmProvider       string
	llmTarget         string
	llmModel          string
	chunkSize         uint
	githubToken       string
	eventsProvider    string
	noMCP             bool

	configDir string
	debug     bool

	v      *viper.Viper
	logger *zap.Logger
}

// serveFlags defines the flags the serve command registers, keyed by the
// shared flag registry constants.
var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the server to listen on",
	},
	config.FlagReposDir: {
		Name:        "repos-dir",
		ViperKey:    "storage.repos_dir",
		Description: "Directory for cloned repositories (relative paths resolve under .codescout/)",
	},
	config.FlagUploadsDir: {
		Name:        "uploads-dir",
		ViperKey:    "storage.uploads_dir",
		Description: "Directory for spooling uploaded files (relative paths resolve under .codescout/)",
	},
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
	config.FlagLLMProv: {
		Name:        "llm-provider",
		ViperKey:    "llm.provider",
		Description: "Completion provider (ollama)",
	},
	config.FlagLLMTgt: {
		Name:        "llm-target",
		ViperKey:    "llm.target",
		Description: "Completion provider URL",
	},
	config.FlagLLMModel: {
		Name:        "llm-model",
		Shorthand:   "m",
		ViperKey:    "llm.model",
		Description: "Completion model name",
	},
	config.FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "ingest.chunk_size",
		Description: "Number of lines per chunk when indexing files",
	},
	config.FlagGitHubToken: {
		Name:        "github-token",
		ViperKey:    "github.token",
		Description: "GitHub API token for resolving pull request base branches",
	},
	config.FlagEventsProv: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Event stream provider (nop, kafka)",
	},
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagReposDir,
	config.FlagUploadsDir,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
	config.FlagChunkSize,
	config.FlagGitHubToken,
	config.FlagEventsProv,
}

const serveLongDesc string = `Run the codescout server.

The server exposes the full retrieval surface over HTTP:
  POST /ingest          Index a repository by URL
  POST /ingest-local    Index uploaded files
  POST /chat            Ask a question (streamed answer)
  POST /review          Review a pull request (streamed review)
  POST /search          Semantic search over indexed chunks
  /mcp                  MCP endpoint with search_code and ask tools

Configuration follows flag > CODESCOUT_* environment > config.toml > defaults.

Examples:
  codescout serve
  codescout serve --listen :3000 --llm-model llama3.2
  codescout serve --vector-store-provider sqlitevec --vector-store-target ./codescout.db`

const serveShortDesc string = "Run the codescout server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagReposDir, &cmder.reposDir)
	config.AddStringFlag(cmd, serveFlags, config.FlagUploadsDir, &cmder.uploadsDir)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProv, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTgt, &cmder.llmTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddStringFlag(cmd, serveFlags, config.FlagGitHubToken, &cmder.githubToken)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProv, &cmder.eventsProvider)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	reposDir, err := c.resolveDir(c.v.GetString("storage.repos_dir"))
	if err != nil {
		return fmt.Errorf("resolving repos dir: %w", err)
	}
	uploadsDir, err := c.resolveDir(c.v.GetString("storage.uploads_dir"))
	if err != nil {
		return fmt.Errorf("resolving uploads dir: %w", err)
	}

	store, err := c.newVectorDriver()
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	dims := c.v.GetUint("embedding.dimensions")
	for _, collection := range []string{vector.CollectionCodebase, vector.CollectionSemanticCache} {
		if err := store.EnsureCollection(ctx, collection, uint64(dims)); err != nil {
			return fmt.Errorf("ensuring collection %s: %w", collection, err)
		}
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

	completer, err := llmutils.NewCompleter(&llmutils.NewCompleterOpts{
		ProviderType: c.v.GetString("llm.provider"),
		TargetURL:    c.v.GetString("llm.target"),
		Model:        c.v.GetString("llm.model"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}
	defer completer.Close()

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

	git := gitrepo.New(reposDir, c.logger)
	baseResolver := ghpr.NewClient(ctx, c.v.GetString("github.token"))

	ingester := ingest.New(&ingest.Config{
		Source:      git,
		Store:       store,
		Embedder:    embedder,
		Events:      events,
		ChunkSize:   int(c.v.GetUint("ingest.chunk_size")),
		Dimensions:  int(dims),
		Concurrency: int(c.v.GetUint("ingest.concurrency")),
		Logger:      c.logger,
	})

	retriever := retrieval.New(&retrieval.Config{
		Store:    store,
		Embedder: embedder,
		Logger:   c.logger,
	})

	cacher := cache.New(&cache.Config{
		Store:  store,
		Logger: c.logger,
	})

	chatter := chat.New(&chat.Config{
		Embedder:  embedder,
		Cache:     cacher,
		Retriever: retriever,
		Completer: completer,
		Events:    events,
		Logger:    c.logger,
	})

	reviewer := review.New(&review.Config{
		Git:             git,
		Resolver:        baseResolver,
		Completer:       completer,
		Events:          events,
		ChunkSize:       int(c.v.GetUint("ingest.chunk_size")),
		MaxContextBytes: int(c.v.GetUint("review.max_context_bytes")),
		Logger:          c.logger,
	})

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: retriever,
		Chatter:   chatter,
		Noop:      c.noMCP,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: c.v.GetString("server.listen"),
	}
	server := api.NewServer(apiConfig, api.Deps{
		Ingester:   ingester,
		Chatter:    chatter,
		Reviewer:   reviewer,
		Retriever:  retriever,
		UploadsDir: uploadsDir,
		MCPHandler: mcpServer.Handler(),
	}, c.logger)

	c.logger.Info("starting server",
		zap.String("listen", apiConfig.ListenAddr),
		zap.String("vector_store", c.v.GetString("vector_store.provider")),
		zap.String("embedding_model", c.v.GetString("embedding.model")),
		zap.String("llm_model", c.v.GetString("llm.model")),
		zap.Bool("mcp", !c.noMCP),
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// resolveDir resolves a storage directory setting. Absolute paths are used
// as-is; relative paths resolve under the .codescout/ directory.
func (c *ServeCommander) resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}

	ddm := dotdir.NewManager()
	return ddm.Subdir(c.configDir, dir)
}

// newVectorDriver builds the configured vector driver. For sqlitevec, an
// unset target falls back to storage.sqlite_path and then to a database
// file inside the .codescout/ directory.
func (c *ServeCommander) newVectorDriver() (vector.Driver, error) {
	provider := c.v.GetString("vector_store.provider")
	target := c.v.GetString("vector_store.target")

	if provider == "sqlitevec" {
		if path := c.v.GetString("storage.sqlite_path"); path != "" {
			target = path
		}
		if target == "" || target == config.NewDefaultConfig().VectorStore.Target {
			ddm := dotdir.NewManager()
			dir, err := ddm.Target(c.configDir)
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
