// Package api provides the codescout HTTP server: repository and upload
// ingestion, streaming chat over the indexed codebase, streaming PR
// review, and semantic code search.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// MaxUploadBytes caps each uploaded file on /ingest-local.
	// Defaults to 5 MiB when zero.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes is the per-file cap for local ingestion uploads.
const DefaultMaxUploadBytes = 5 * 1024 * 1024
