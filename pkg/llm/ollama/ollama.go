// Package ollama implements pkg/llm's Completer against Ollama's generate
// API. Streaming responses are newline-delimited JSON.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/llm"
)

const (
	// DefaultModel is the default completion model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// tokenBufferSize is the channel capacity between the NDJSON reader and
	// the consumer. Small on purpose: the producer should feel backpressure
	// from a slow consumer rather than buffering the whole answer.
	tokenBufferSize = 16
)

// Completer wraps Ollama's generate API.
type Completer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Ollama completer.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the completion model. Defaults to DefaultModel if empty.
	Model string
}

// generateRequest is the request body for Ollama's generate API.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateChunk is a single NDJSON frame from a streaming response. The
// non-streaming response uses the same shape with the full text in Response.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewCompleter creates a new completer using Ollama's generate API.
func NewCompleter(cfg Config, logger *zap.Logger) (*Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Completer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// Generation can legitimately take minutes on large prompts;
			// the timeout guards against a hung backend, not slow output.
			Timeout: 10 * time.Minute,
		},
		logger: logger,
	}, nil
}

// Complete returns the full generated answer in a single request.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chunk generateChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}

	return chunk.Response, nil
}

// Stream returns an ordered channel of text tokens. Malformed NDJSON lines
// are skipped rather than aborting the stream; the channel closes on the
// done frame, end-of-stream, or context cancellation.
func (c *Completer) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	resp, err := c.post(ctx, generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return nil, err
	}

	tokens := make(chan string, tokenBufferSize)
	go c.readStream(ctx, resp, tokens)

	return tokens, nil
}

// readStream scans the NDJSON response body and forwards tokens until the
// done frame, EOF, or cancellation. Once streaming has started, transport
// errors end the stream without surfacing an error: the consumer observes a
// closed channel and decides what to do with the partial answer.
func (c *Completer) readStream(ctx context.Context, resp *http.Response, tokens chan<- string) {
	defer close(tokens)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Warn("skipping malformed stream frame", zap.Error(err))
			continue
		}

		if chunk.Response != "" {
			select {
			case tokens <- chunk.Response:
			case <-ctx.Done():
				return
			}
		}

		if chunk.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Warn("completion stream ended abnormally", zap.Error(err))
	}
}

// post sends a generate request and returns the raw response, failing with
// the completion sentinel if the connection cannot be established.
func (c *Completer) post(ctx context.Context, reqBody generateRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llm.ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, string(body))
	}

	return resp, nil
}

// Close releases resources held by the completer.
func (c *Completer) Close() error {
	return nil
}

var _ llm.Completer = (*Completer)(nil)
