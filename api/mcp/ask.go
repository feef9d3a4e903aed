package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a question about the indexed codebase. Retrieves the most relevant code and answers from that context only, citing file paths and line ranges."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed codebase"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// handleAsk processes an ask request with the buffered chat variant;
// MCP tool results are delivered whole, not streamed.
func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP ask request", zap.String("question", input.Question))

	answer, err := s.config.Chatter.Ask(ctx, input.Question)
	if err != nil {
		logger.Error("ask failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Ask failed: %v", err)},
			},
		}, AskOutput{}, nil
	}

	return nil, AskOutput{
		Question: input.Question,
		Answer:   answer,
	}, nil
}
