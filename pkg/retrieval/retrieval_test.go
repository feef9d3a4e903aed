package retrieval_test

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/chunker"
	"github.com/codescoutco/codescout/pkg/retrieval"
	testutils "github.com/codescoutco/codescout/pkg/utils/test"
	"github.com/codescoutco/codescout/pkg/vector"
)

func TestRetrieval(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Retrieval Suite")
}

var _ = Describe("Retriever", func() {
	var (
		store     *testutils.MockStore
		embedder  *testutils.MockEmbedder
		retriever *retrieval.Retriever
		ctx       context.Context
	)

	BeforeEach(func() {
		store = testutils.NewMockStore()
		embedder = testutils.NewMockEmbedder()
		retriever = retrieval.New(&retrieval.Config{
			Store:    store,
			Embedder: embedder,
		})
		ctx = context.Background()
	})

	It("searches the codebase collection with the default limit and no threshold", func() {
		_, err := retriever.Retrieve(ctx, "where is the server configured?")
		Expect(err).NotTo(HaveOccurred())

		Expect(store.SearchCalls).To(HaveLen(1))
		call := store.SearchCalls[0]
		Expect(call.Collection).To(Equal(vector.CollectionCodebase))
		Expect(call.Limit).To(Equal(retrieval.DefaultLimit))
		Expect(call.Threshold).To(BeNil())
	})

	It("converts result payloads into chunks in ranked order", func() {
		store.Results[vector.CollectionCodebase] = []vector.Result{
			{
				ID:    "a",
				Score: 0.9,
				Payload: chunker.Chunk{
					FilePath:  "pkg/server/server.go",
					StartLine: 1,
					EndLine:   40,
					Code:      "package server",
				}.Payload(),
			},
			{
				ID:    "b",
				Score: 0.7,
				Payload: chunker.Chunk{
					FilePath:  "pkg/server/handlers.go",
					StartLine: 41,
					EndLine:   80,
					Code:      "func handle() {}",
				}.Payload(),
			},
		}

		chunks, err := retriever.Retrieve(ctx, "how are requests handled?")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0].FilePath).To(Equal("pkg/server/server.go"))
		Expect(chunks[1].FilePath).To(Equal("pkg/server/handlers.go"))
		Expect(chunks[1].StartLine).To(Equal(41))
	})

	It("skips results with malformed payloads", func() {
		store.Results[vector.CollectionCodebase] = []vector.Result{
			{ID: "bad", Score: 0.9, Payload: map[string]any{"filePath": 12}},
			{
				ID:    "good",
				Score: 0.8,
				Payload: chunker.Chunk{
					FilePath:  "main.go",
					StartLine: 1,
					EndLine:   10,
					Code:      "package main",
				}.Payload(),
			},
		}

		chunks, err := retriever.Retrieve(ctx, "entry point?")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
		Expect(chunks[0].FilePath).To(Equal("main.go"))
	})

	It("honors a configured limit", func() {
		narrow := retrieval.New(&retrieval.Config{
			Store:    store,
			Embedder: embedder,
			Limit:    2,
		})

		_, err := narrow.Retrieve(ctx, "anything")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SearchCalls[0].Limit).To(Equal(uint64(2)))
	})

	It("propagates embedding failures without searching", func() {
		embedder.FailOn = "broken"

		_, err := retriever.Retrieve(ctx, "broken")
		Expect(err).To(HaveOccurred())
		Expect(store.SearchCalls).To(BeEmpty())
	})

	It("handles integer payload fields deserialized as int64", func() {
		store.Results[vector.CollectionCodebase] = []vector.Result{
			{
				ID:    "a",
				Score: 0.9,
				Payload: map[string]any{
					"filePath":  "util.go",
					"startLine": int64(41),
					"endLine":   int64(80),
					"code":      "func Util() {}",
				},
			},
		}

		chunks, err := retriever.Retrieve(ctx, "utilities")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
		Expect(chunks[0].StartLine).To(Equal(41))
		Expect(chunks[0].EndLine).To(Equal(80))
	})
})

var _ = Describe("Prompt assembly", func() {
	chunks := []chunker.Chunk{
		{FilePath: "a.go", StartLine: 1, EndLine: 40, Code: "package a"},
		{FilePath: "b.go", StartLine: 41, EndLine: 80, Code: "package b"},
	}

	Describe("AssembleContext", func() {
		It("labels each chunk and separates blocks with a delimiter", func() {
			context := retrieval.AssembleContext(chunks)
			Expect(context).To(Equal("File: a.go\nLines: 1-40\n\npackage a\n---\nFile: b.go\nLines: 41-80\n\npackage b"))
		})

		It("renders a single chunk without a delimiter", func() {
			context := retrieval.AssembleContext(chunks[:1])
			Expect(context).NotTo(ContainSubstring("\n---\n"))
		})

		It("returns an empty string for no chunks", func() {
			Expect(retrieval.AssembleContext(nil)).To(Equal(""))
		})
	})

	Describe("ChatPrompt", func() {
		It("embeds the context and the question", func() {
			prompt := retrieval.ChatPrompt("CONTEXT", "QUESTION")
			Expect(prompt).To(ContainSubstring("ONLY the following context"))
			Expect(prompt).To(ContainSubstring("Code:\nCONTEXT"))
			Expect(prompt).To(ContainSubstring("Question:\nQUESTION"))
			Expect(strings.Index(prompt, "CONTEXT")).To(BeNumerically("<", strings.Index(prompt, "QUESTION")))
		})
	})

	Describe("ReviewPrompt", func() {
		It("enforces the strict record grammar and the sentinel", func() {
			prompt := retrieval.ReviewPrompt("DIFF")
			Expect(prompt).To(ContainSubstring("Category: Bug|Security|Performance|Suggestion"))
			Expect(prompt).To(ContainSubstring("Problem:"))
			Expect(prompt).To(ContainSubstring("Fix:"))
			Expect(prompt).To(ContainSubstring(retrieval.NoIssuesSentinel))
			Expect(prompt).To(ContainSubstring("Code Changes:\nDIFF"))
		})
	})
})
