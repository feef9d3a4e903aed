// Package chunker splits source text into fixed-size, line-numbered chunks.
// Chunks are the unit of embedding and retrieval: each one carries the file
// path it came from and a 1-based inclusive line range.
package chunker

import (
	"os"
	"strings"
)

// DefaultChunkSize is the number of lines per chunk.
const DefaultChunkSize = 40

// Chunk is a contiguous slice of a file's (or diff hunk's) text.
// Immutable once created; ranges never span files.
type Chunk struct {
	FilePath  string `json:"filePath"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Code      string `json:"code"`
}

// ChunkFile reads a file from disk and chunks its content.
func ChunkFile(path string, chunkSize int) ([]Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ChunkContent(string(content), path, chunkSize), nil
}

// ChunkContent splits content into consecutive windows of chunkSize lines.
// Every chunk except possibly the last holds exactly chunkSize lines; the
// last holds the remainder. Line numbers are 1-based and contiguous across
// chunks, so concatenating all chunks' code reconstructs the input exactly.
// Content that is blank after trimming yields nil.
func ChunkContent(content, filePath string, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")

	var chunks []Chunk
	for i := 0; i < len(lines); i += chunkSize {
		end := min(i+chunkSize, len(lines))
		chunks = append(chunks, Chunk{
			FilePath:  filePath,
			StartLine: i + 1,
			EndLine:   end,
			Code:      strings.Join(lines[i:end], "\n"),
		})
	}

	return chunks
}
