package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRepoIngested is emitted after a repository finishes ingestion.
	EventTypeRepoIngested = "codescout.repo.ingested"

	// EventTypeAnswerServed is emitted after a chat answer completes,
	// whether served from the semantic cache or freshly generated.
	EventTypeAnswerServed = "codescout.answer.served"

	// EventTypeReviewCompleted is emitted after a PR review stream finishes.
	EventTypeReviewCompleted = "codescout.review.completed"
)

// Event is a transport-neutral envelope for pipeline lifecycle events.
// Exactly one of the Meta fields is set, matching EventType.
type Event struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	Ingest *IngestMeta `json:"ingest,omitempty"`
	Chat   *ChatMeta   `json:"chat,omitempty"`
	Review *ReviewMeta `json:"review,omitempty"`
}

// EventSource identifies the emitting process.
type EventSource struct {
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// IngestMeta captures the outcome of a repository ingestion.
type IngestMeta struct {
	RepoURL    string `json:"repo_url,omitempty"`
	Files      int    `json:"files"`
	Chunks     int    `json:"chunks"`
	Failures   int    `json:"failures"`
	DurationMs int64  `json:"duration_ms"`
}

// ChatMeta captures the outcome of a chat request.
type ChatMeta struct {
	CacheHit      bool  `json:"cache_hit"`
	ContextChunks int   `json:"context_chunks"`
	Cancelled     bool  `json:"cancelled"`
	DurationMs    int64 `json:"duration_ms"`
}

// ReviewMeta captures the outcome of a PR review.
type ReviewMeta struct {
	PRURL      string `json:"pr_url"`
	Files      int    `json:"files"`
	Truncated  bool   `json:"truncated"`
	DurationMs int64  `json:"duration_ms"`
}

// NewEvent builds an envelope with a fresh ID and timestamp. Callers set
// exactly one Meta field before publishing.
func NewEvent(eventType string, source EventSource, id string) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       id,
		EmittedAt:     time.Now().UTC(),
		Source:        source,
	}
}
