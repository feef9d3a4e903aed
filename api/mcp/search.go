package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/api/search"
)

var (
	searchToolName    = "search_code"
	searchDescription = "Search the indexed codebase using semantic search. Returns the most relevant code chunks for the query, each with its file path and line range."
)

// SearchInput represents the input arguments for the search_code tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant code"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search_code request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.SearchOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Int("topK", input.TopK),
	)

	out, err := search.Search(ctx, input.Query, input.TopK, s.config.Retriever, logger)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Search failed: %v", err)},
			},
		}, search.SearchOutput{}, nil
	}

	return nil, *out, nil
}
