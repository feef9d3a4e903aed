package eventstream_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/eventstream"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("Event", func() {
	It("marshals a repo ingested event with expected top-level keys", func() {
		now := time.Unix(1756339200, 0).UTC()
		event := eventstream.Event{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeRepoIngested,
			EventID:       "evt_123",
			EmittedAt:     now,
			Source: eventstream.EventSource{
				Service: "codescout",
				Version: "0.1.0",
			},
			Ingest: &eventstream.IngestMeta{
				RepoURL:    "https://github.com/acme/widgets.git",
				Files:      12,
				Chunks:     87,
				Failures:   1,
				DurationMs: 4200,
			},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("ingest"))
		Expect(got).NotTo(HaveKey("chat"))
		Expect(got).NotTo(HaveKey("review"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRepoIngested).To(Equal("codescout.repo.ingested"))
		Expect(eventstream.EventTypeAnswerServed).To(Equal("codescout.answer.served"))
		Expect(eventstream.EventTypeReviewCompleted).To(Equal("codescout.review.completed"))
	})

	It("stamps new events with schema version and emitted time", func() {
		event := eventstream.NewEvent(eventstream.EventTypeAnswerServed, eventstream.EventSource{Service: "codescout"}, "evt_1")
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventID).To(Equal("evt_1"))
		Expect(event.EmittedAt).NotTo(BeZero())
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
