// Package search provides shared types and logic for semantic search
// over indexed code chunks. It is used by both the REST endpoint and
// the MCP server tool.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/retrieval"
	"github.com/codescoutco/codescout/pkg/utils"
)

const defaultTopK = 5

// previewLen bounds the code preview in search results.
const previewLen = 240

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single matched code chunk.
type SearchResult struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Preview   string `json:"preview"`
	Code      string `json:"code"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search embeds the query text and returns the closest indexed code
// chunks, newest ranking first.
func Search(
	ctx context.Context,
	query string,
	topK int,
	retriever *retrieval.Retriever,
	logger *zap.Logger,
) (*SearchOutput, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	logger.Debug("search request",
		zap.String("query", query),
		zap.Int("topK", topK),
	)

	chunks, err := retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching codebase: %w", err)
	}

	if topK < len(chunks) {
		chunks = chunks[:topK]
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, SearchResult{
			FilePath:  chunk.FilePath,
			StartLine: chunk.StartLine,
			EndLine:   chunk.EndLine,
			Preview:   utils.Truncate(chunk.Code, previewLen),
			Code:      chunk.Code,
		})
	}

	return &SearchOutput{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}
