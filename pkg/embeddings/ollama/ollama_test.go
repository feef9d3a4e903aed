package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/embeddings/ollama"
	"github.com/codescoutco/codescout/pkg/vector"
)

func TestOllamaEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		handler = func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("posts to /api/embed with the configured model", func() {
		var gotPath string
		var gotBody map[string]any
		handler = func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 2, 3}},
			})
		}

		vec, err := newEmbedder().Embed(ctx, "hello world")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{1, 2, 3}))
		Expect(gotPath).To(Equal("/api/embed"))
		Expect(gotBody["model"]).To(Equal(ollama.DefaultModel))
		Expect(gotBody["input"]).To(Equal("hello world"))
	})

	It("wraps non-200 responses in the embedding sentinel error", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}

		_, err := newEmbedder().Embed(ctx, "anything")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("fails when the response carries no embeddings", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
		}

		_, err := newEmbedder().Embed(ctx, "anything")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("fails when the backend is unreachable", func() {
		e, err := ollama.NewEmbedder(ollama.Config{BaseURL: "http://127.0.0.1:1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(ctx, "anything")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})
})
