package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/chat"
	"github.com/codescoutco/codescout/pkg/ingest"
	"github.com/codescoutco/codescout/pkg/retrieval"
	"github.com/codescoutco/codescout/pkg/review"
)

// Server is the codescout HTTP server.
type Server struct {
	config     Config
	ingester   *ingest.Ingester
	chatter    *chat.Chat
	reviewer   *review.Reviewer
	retriever  *retrieval.Retriever
	uploadsDir string
	logger     *zap.Logger
	app        *fiber.App
}

// Deps are the pipeline components the server routes requests to.
// They are injected so one process can share connections across the HTTP
// surface and the MCP surface.
type Deps struct {
	Ingester  *ingest.Ingester
	Chatter   *chat.Chat
	Reviewer  *review.Reviewer
	Retriever *retrieval.Retriever

	// UploadsDir is where multipart uploads are spooled before ingestion
	UploadsDir string

	// MCPHandler, when non-nil, is mounted at /mcp
	MCPHandler http.Handler
}

// NewServer creates a new API server.
func NewServer(config Config, deps Deps, logger *zap.Logger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Multipart bodies carry many files; the per-file cap is
		// enforced in the handler.
		BodyLimit: 64 * 1024 * 1024,
	})

	s := &Server{
		config:     config,
		ingester:   deps.Ingester,
		chatter:    deps.Chatter,
		reviewer:   deps.Reviewer,
		retriever:  deps.Retriever,
		uploadsDir: deps.UploadsDir,
		logger:     logger,
		app:        app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/ingest", s.handleIngest)
	app.Post("/ingest-local", s.handleIngestLocal)
	app.Post("/chat", s.handleChat)
	app.Post("/review", s.handleReview)
	app.Post("/search", s.handleSearch)

	if deps.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCPHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
