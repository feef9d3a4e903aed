package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/api/search"
	"github.com/codescoutco/codescout/pkg/ghpr"
)

// streamErrorMarker is appended to an already-started chunked response
// when generation fails; the status line has been sent by then.
const streamErrorMarker = "\n[error] generation failed"

type errorResponse struct {
	Error string `json:"error"`
}

type ingestRequest struct {
	RepoURL string `json:"repoUrl"`
}

type ingestResponse struct {
	Status   string   `json:"status"`
	Files    int      `json:"files"`
	Chunks   int      `json:"chunks"`
	Failures []string `json:"failures,omitempty"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type reviewRequest struct {
	PRURL string `json:"prUrl"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngest clones a repository and indexes its allowed files.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req ingestRequest
	if err := c.BodyParser(&req); err != nil || req.RepoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "repoUrl required"})
	}

	s.logger.Info("ingestion started", zap.String("repo", req.RepoURL))

	report, err := s.ingester.Repo(c.Context(), req.RepoURL)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}

	resp := ingestResponse{
		Status: "indexed",
		Files:  report.Files,
		Chunks: report.Chunks,
	}
	for _, failure := range report.Failures {
		resp.Failures = append(resp.Failures, fmt.Sprintf("%s: %v", failure.Path, failure.Err))
	}

	return c.JSON(resp)
}

// handleIngestLocal indexes uploaded files. Each file is spooled to the
// uploads directory, ingested under its original name, then removed.
func (s *Server) handleIngestLocal(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "multipart form required"})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "No files received"})
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		s.logger.Error("creating uploads dir failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Indexing failed"})
	}

	total := 0
	for _, file := range files {
		if file.Size > s.config.MaxUploadBytes {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
				Error: fmt.Sprintf("file %s exceeds the %d byte limit", file.Filename, s.config.MaxUploadBytes),
			})
		}

		tmpPath := filepath.Join(s.uploadsDir, uuid.NewString())
		if err := c.SaveFile(file, tmpPath); err != nil {
			s.logger.Error("saving upload failed",
				zap.String("file", file.Filename),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Indexing failed"})
		}

		chunks, err := s.ingester.File(c.Context(), tmpPath, file.Filename)
		os.Remove(tmpPath)
		if err != nil {
			s.logger.Error("ingesting upload failed",
				zap.String("file", file.Filename),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Indexing failed"})
		}
		total += chunks
	}

	return c.JSON(fiber.Map{"ok": true, "chunks": total})
}

// handleChat streams an answer as chunked text/plain. Tokens are written
// through an io.Pipe so fasthttp flushes each chunk to the socket as it
// is produced.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil || req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "question required"})
	}

	return s.streamPlainText(c, func(ctx context.Context, sink func(string) error) error {
		return s.chatter.Stream(ctx, req.Question, sink)
	})
}

// handleReview streams a PR review following the same chunked text/plain
// contract as chat.
func (s *Server) handleReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil || req.PRURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "prUrl required"})
	}

	// Validate before committing to a streaming response so malformed
	// references still get a clean 400.
	if _, err := ghpr.ParsePRURL(req.PRURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid PR URL"})
	}

	s.logger.Info("review started", zap.String("pr", req.PRURL))

	return s.streamPlainText(c, func(ctx context.Context, sink func(string) error) error {
		return s.reviewer.Stream(ctx, req.PRURL, sink)
	})
}

// handleSearch returns the closest indexed chunks for a query.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req search.SearchInput
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "query required"})
	}

	out, err := search.Search(c.Context(), req.Query, req.TopK, s.retriever, s.logger)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(out)
}

// streamPlainText runs producer in the background and streams whatever it
// writes to the sink as a chunked text/plain response.
//
// io.Pipe is used instead of SetBodyStreamWriter: pw.Write blocks until
// fasthttp's chunked writer consumes the data, which gives direct
// backpressure and true per-token streaming instead of buffering the
// whole body.
//
// The producer receives a detached context rather than c.Context():
// fasthttp recycles its RequestCtx as soon as the handler returns, but
// the producer goroutine outlives the handler, so touching c there races
// with the release and can observe a nil or reused ctx. Client
// disconnects still abort the stream through the pipe write error.
func (s *Server) streamPlainText(c *fiber.Ctx, producer func(ctx context.Context, sink func(string) error) error) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")

	pr, pw := io.Pipe()

	go func() {
		defer pw.Close()

		err := producer(context.Background(), func(token string) error {
			_, werr := io.WriteString(pw, token)
			return werr
		})
		if err != nil {
			s.logger.Error("stream failed", zap.Error(err))
			// Only reachable when the client is still connected; a
			// broken pipe makes this write a no-op.
			if !errors.Is(err, io.ErrClosedPipe) {
				_, _ = io.WriteString(pw, streamErrorMarker)
			}
		}
	}()

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}
