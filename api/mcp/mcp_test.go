package mcp_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/api/mcp"
	"github.com/codescoutco/codescout/pkg/retrieval"
	testutils "github.com/codescoutco/codescout/pkg/utils/test"
)

func TestMCP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MCP Suite")
}

var _ = Describe("NewServer", func() {
	var retriever *retrieval.Retriever

	BeforeEach(func() {
		retriever = retrieval.New(&retrieval.Config{
			Store:    testutils.NewMockStore(),
			Embedder: testutils.NewMockEmbedder(),
		})
	})

	It("creates a noop server without dependencies", func() {
		s, err := mcp.NewServer(mcp.Config{Noop: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).NotTo(BeNil())
	})

	It("requires a retriever", func() {
		_, err := mcp.NewServer(mcp.Config{Logger: zap.NewNop()})
		Expect(err).To(HaveOccurred())
	})

	It("requires a logger", func() {
		_, err := mcp.NewServer(mcp.Config{Retriever: retriever})
		Expect(err).To(HaveOccurred())
	})

	It("creates a server with an HTTP handler", func() {
		s, err := mcp.NewServer(mcp.Config{
			Retriever: retriever,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Handler()).NotTo(BeNil())
	})
})
