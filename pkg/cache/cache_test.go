package cache_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/cache"
	testutils "github.com/codescoutco/codescout/pkg/utils/test"
	"github.com/codescoutco/codescout/pkg/vector"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}

var _ = Describe("Cache", func() {
	var (
		store     *testutils.MockStore
		c         *cache.Cache
		ctx       context.Context
		embedding []float32
	)

	BeforeEach(func() {
		store = testutils.NewMockStore()
		c = cache.New(&cache.Config{Store: store})
		ctx = context.Background()
		embedding = []float32{0.1, 0.2, 0.3}
	})

	Describe("Lookup", func() {
		It("returns nil on an empty cache", func() {
			entry, err := c.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).To(BeNil())
		})

		It("searches the semantic cache collection with limit 1 and the default threshold", func() {
			_, err := c.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.SearchCalls).To(HaveLen(1))
			call := store.SearchCalls[0]
			Expect(call.Collection).To(Equal(vector.CollectionSemanticCache))
			Expect(call.Embedding).To(Equal(embedding))
			Expect(call.Limit).To(Equal(uint64(1)))
			Expect(call.Threshold).NotTo(BeNil())
			Expect(*call.Threshold).To(Equal(cache.DefaultThreshold))
		})

		It("returns the cached answer when a result clears the threshold", func() {
			store.Results[vector.CollectionSemanticCache] = []vector.Result{
				{
					ID:    "cached-1",
					Score: 0.91,
					Payload: map[string]any{
						"question":  "what does the chunker do?",
						"answer":    "It splits files into fixed line windows.",
						"createdAt": "2026-08-28T10:00:00Z",
					},
				},
			}

			entry, err := c.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).NotTo(BeNil())
			Expect(entry.Question).To(Equal("what does the chunker do?"))
			Expect(entry.Answer).To(Equal("It splits files into fixed line windows."))
			Expect(entry.Score).To(BeNumerically("~", 0.91, 0.001))
			Expect(entry.CreatedAt).To(Equal("2026-08-28T10:00:00Z"))
		})

		It("misses when the closest result scores below the threshold", func() {
			store.Results[vector.CollectionSemanticCache] = []vector.Result{
				{ID: "cached-1", Score: 0.4, Payload: map[string]any{"answer": "stale"}},
			}

			entry, err := c.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).To(BeNil())
		})

		It("honors a configured threshold", func() {
			tight := cache.New(&cache.Config{Store: store, Threshold: 0.95})
			store.Results[vector.CollectionSemanticCache] = []vector.Result{
				{ID: "cached-1", Score: 0.9, Payload: map[string]any{"answer": "close but not enough"}},
			}

			entry, err := tight.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).To(BeNil())
		})

		It("propagates search failures", func() {
			store.FailSearch = true

			_, err := c.Lookup(ctx, embedding)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Store", func() {
		It("upserts the question, answer, and timestamp under the embedding", func() {
			err := c.Store(ctx, embedding, "what port does the server use?", "It listens on :3000 by default.")
			Expect(err).NotTo(HaveOccurred())

			points := store.Upserts[vector.CollectionSemanticCache]
			Expect(points).To(HaveLen(1))
			Expect(points[0].ID).NotTo(BeEmpty())
			Expect(points[0].Vector).To(Equal(embedding))
			Expect(points[0].Payload["question"]).To(Equal("what port does the server use?"))
			Expect(points[0].Payload["answer"]).To(Equal("It listens on :3000 by default."))
			Expect(points[0].Payload["createdAt"]).NotTo(BeEmpty())
		})

		It("assigns a distinct ID to each entry", func() {
			Expect(c.Store(ctx, embedding, "first question", "first answer")).To(Succeed())
			Expect(c.Store(ctx, embedding, "first question", "second answer")).To(Succeed())

			points := store.Upserts[vector.CollectionSemanticCache]
			Expect(points).To(HaveLen(2))
			Expect(points[0].ID).NotTo(Equal(points[1].ID))
		})

		It("propagates upsert failures", func() {
			store.FailUpsert = true

			err := c.Store(ctx, embedding, "question", "answer")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("round trip", func() {
		It("serves a stored answer back through Lookup", func() {
			Expect(c.Store(ctx, embedding, "how do I ingest a repo?", "POST the clone URL to /ingest.")).To(Succeed())

			stored := store.Upserts[vector.CollectionSemanticCache][0]
			store.Results[vector.CollectionSemanticCache] = []vector.Result{
				{ID: stored.ID, Score: 1.0, Payload: stored.Payload},
			}

			entry, err := c.Lookup(ctx, embedding)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).NotTo(BeNil())
			Expect(entry.Answer).To(Equal("POST the clone URL to /ingest."))
		})
	})
})
