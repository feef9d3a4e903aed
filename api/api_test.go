package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/api"
	"github.com/codescoutco/codescout/pkg/cache"
	"github.com/codescoutco/codescout/pkg/chat"
	"github.com/codescoutco/codescout/pkg/chunker"
	"github.com/codescoutco/codescout/pkg/ingest"
	"github.com/codescoutco/codescout/pkg/retrieval"
	testutils "github.com/codescoutco/codescout/pkg/utils/test"
	"github.com/codescoutco/codescout/pkg/vector"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

// stubSource serves a fixed directory as the clone of any repository.
type stubSource struct {
	root string
}

func (s *stubSource) CloneFresh(_ context.Context, _ string) (string, error) {
	return s.root, nil
}

func (s *stubSource) WalkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

var _ = Describe("Server", func() {
	var (
		store    *testutils.MockStore
		embedder *testutils.MockEmbedder
		server   *api.Server
		repoDir  string
	)

	BeforeEach(func() {
		store = testutils.NewMockStore()
		embedder = testutils.NewMockEmbedder()
		completer := testutils.NewMockCompleter("it ", "works")
		logger := zap.NewNop()

		repoDir = GinkgoT().TempDir()

		retriever := retrieval.New(&retrieval.Config{Store: store, Embedder: embedder})
		ingester := ingest.New(&ingest.Config{
			Source:     &stubSource{root: repoDir},
			Store:      store,
			Embedder:   embedder,
			Dimensions: 3,
		})
		chatter := chat.New(&chat.Config{
			Embedder:  embedder,
			Cache:     cache.New(&cache.Config{Store: store}),
			Retriever: retriever,
			Completer: completer,
		})

		server = api.NewServer(api.Config{ListenAddr: ":0"}, api.Deps{
			Ingester:   ingester,
			Chatter:    chatter,
			Retriever:  retriever,
			UploadsDir: filepath.Join(GinkgoT().TempDir(), "uploads"),
		}, logger)
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, _ := io.ReadAll(resp.Body)
			Expect(strings.TrimSpace(string(body))).To(Equal(`"pong"`))
		})
	})

	Describe("POST /ingest", func() {
		It("indexes the repository and reports counts", func() {
			Expect(os.WriteFile(filepath.Join(repoDir, "main.go"), []byte("package main"), 0o644)).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/ingest",
				strings.NewReader(`{"repoUrl":"https://github.com/acme/widgets.git"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out["status"]).To(Equal("indexed"))
			Expect(out["files"]).To(BeNumerically("==", 1))
			Expect(store.Upserts[vector.CollectionCodebase]).To(HaveLen(1))
		})

		It("rejects a missing repoUrl", func() {
			req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /ingest-local", func() {
		buildUpload := func(name, content string) (*bytes.Buffer, string) {
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			fw, err := w.CreateFormFile("files", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = fw.Write([]byte(content))
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Close()).To(Succeed())
			return &buf, w.FormDataContentType()
		}

		It("indexes uploaded files under their original names", func() {
			body, contentType := buildUpload("src/app.ts", "export const x = 1;")

			req := httptest.NewRequest(http.MethodPost, "/ingest-local", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			points := store.Upserts[vector.CollectionCodebase]
			Expect(points).To(HaveLen(1))
			Expect(points[0].Payload["filePath"]).To(Equal("src/app.ts"))
		})

		It("rejects an empty form", func() {
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			Expect(w.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/ingest-local", &buf)
			req.Header.Set("Content-Type", w.FormDataContentType())

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects files over the upload cap", func() {
			small := api.NewServer(api.Config{ListenAddr: ":0", MaxUploadBytes: 4}, api.Deps{
				Ingester:   ingest.New(&ingest.Config{Store: store, Embedder: embedder, Dimensions: 3}),
				UploadsDir: GinkgoT().TempDir(),
			}, zap.NewNop())

			body, contentType := buildUpload("big.ts", "much more than four bytes")

			req := httptest.NewRequest(http.MethodPost, "/ingest-local", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := small.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /chat", func() {
		It("streams a plain-text answer", func() {
			store.Results[vector.CollectionCodebase] = []vector.Result{
				{
					ID:    "chunk",
					Score: 0.9,
					Payload: chunker.Chunk{
						FilePath:  "main.go",
						StartLine: 1,
						EndLine:   10,
						Code:      "package main",
					}.Payload(),
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/chat",
				strings.NewReader(`{"question":"does it work?"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/plain"))

			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("it works"))
		})

		It("rejects a missing question", func() {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("streams complete answers when generation outlives the handler", func() {
			// The handler returns as soon as the body stream is set; the
			// producer goroutine keeps running against the recycled
			// request ctx's lifetime. Slow token generation plus repeated
			// requests would panic or interleave responses if the
			// producer still touched the fiber ctx after release.
			slow := testutils.NewMockCompleter("to", "ken", " by", " to", "ken")
			slow.TokenDelay = 10 * time.Millisecond

			retriever := retrieval.New(&retrieval.Config{Store: store, Embedder: embedder})
			chatter := chat.New(&chat.Config{
				Embedder:  embedder,
				Cache:     cache.New(&cache.Config{Store: store}),
				Retriever: retriever,
				Completer: slow,
			})
			slowServer := api.NewServer(api.Config{ListenAddr: ":0"}, api.Deps{
				Chatter:    chatter,
				Retriever:  retriever,
				UploadsDir: GinkgoT().TempDir(),
			}, zap.NewNop())

			for i := 0; i < 10; i++ {
				req := httptest.NewRequest(http.MethodPost, "/chat",
					strings.NewReader(`{"question":"does it work?"}`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := slowServer.App().Test(req, -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				body, _ := io.ReadAll(resp.Body)
				Expect(string(body)).To(Equal("token by token"))
			}
		})
	})

	Describe("POST /review", func() {
		It("rejects a malformed PR URL before streaming", func() {
			req := httptest.NewRequest(http.MethodPost, "/review",
				strings.NewReader(`{"prUrl":"https://github.com/acme/widgets"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /search", func() {
		It("returns matched chunks", func() {
			store.Results[vector.CollectionCodebase] = []vector.Result{
				{
					ID:    "chunk",
					Score: 0.9,
					Payload: chunker.Chunk{
						FilePath:  "util.go",
						StartLine: 41,
						EndLine:   80,
						Code:      "func Util() {}",
					}.Payload(),
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/search",
				strings.NewReader(`{"query":"utility functions"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out["count"]).To(BeNumerically("==", 1))
		})
	})
})
