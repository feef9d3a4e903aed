package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/eventstream"
	"github.com/codescoutco/codescout/pkg/ingest"
	testutils "github.com/codescoutco/codescout/pkg/utils/test"
	"github.com/codescoutco/codescout/pkg/vector"
)

func TestIngest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingest Suite")
}

// fakeSource serves a pre-built directory tree as the clone of any URL.
type fakeSource struct {
	root     string
	cloneErr error
	cloned   []string
}

func (f *fakeSource) CloneFresh(_ context.Context, url string) (string, error) {
	if f.cloneErr != nil {
		return "", f.cloneErr
	}
	f.cloned = append(f.cloned, url)
	return f.root, nil
}

func (f *fakeSource) WalkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func writeFile(root, rel, content string) {
	path := filepath.Join(root, rel)
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}

var _ = Describe("IngestablePath", func() {
	DescribeTable("applies the extension allow-list",
		func(path string, want bool) {
			Expect(ingest.IngestablePath(path)).To(Equal(want))
		},
		Entry("go file", "pkg/server/server.go", true),
		Entry("typescript file", "src/app.ts", true),
		Entry("tsx file", "src/App.tsx", true),
		Entry("python file", "scripts/build.py", true),
		Entry("java file", "src/Main.java", true),
		Entry("markdown file", "README.md", true),
		Entry("css file", "styles/app.css", true),
		Entry("html file", "public/index.html", true),
		Entry("uppercase extension", "src/APP.JS", true),
		Entry("binary", "bin/tool.exe", false),
		Entry("lockfile", "package-lock.json", false),
		Entry("no extension", "Makefile", false),
		Entry("git internals", "repo/.git/config", false),
		Entry("git object with allowed suffix", "repo/.git/hooks/pre-commit.py", false),
	)
})

var _ = Describe("Ingester", func() {
	var (
		store    *testutils.MockStore
		embedder *testutils.MockEmbedder
		events   *testutils.MockPublisher
		source   *fakeSource
		ing      *ingest.Ingester
		ctx      context.Context
	)

	BeforeEach(func() {
		store = testutils.NewMockStore()
		embedder = testutils.NewMockEmbedder()
		embedder.Dimensions = 8
		events = testutils.NewMockPublisher()
		source = &fakeSource{root: GinkgoT().TempDir()}
		ing = ingest.New(&ingest.Config{
			Source:     source,
			Store:      store,
			Embedder:   embedder,
			Events:     events,
			Dimensions: 8,
		})
		ctx = context.Background()
	})

	Describe("Content", func() {
		It("skips blank content entirely", func() {
			chunks, err := ing.Content(ctx, "   \n\t\n", "empty.go")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeZero())
			Expect(embedder.Calls).To(BeEmpty())
			Expect(store.Upserts[vector.CollectionCodebase]).To(BeEmpty())
		})

		It("splits an 85-line file into three windows of forty", func() {
			var sb strings.Builder
			for n := 1; n <= 85; n++ {
				fmt.Fprintf(&sb, "line %d\n", n)
			}
			content := strings.TrimSuffix(sb.String(), "\n")

			chunks, err := ing.Content(ctx, content, "big.go")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(Equal(3))

			points := store.Upserts[vector.CollectionCodebase]
			Expect(points).To(HaveLen(3))
			Expect(points[0].Payload["startLine"]).To(Equal(1))
			Expect(points[0].Payload["endLine"]).To(Equal(40))
			Expect(points[1].Payload["startLine"]).To(Equal(41))
			Expect(points[2].Payload["startLine"]).To(Equal(81))
			Expect(points[2].Payload["endLine"]).To(Equal(85))
		})

		It("records the logical path in every payload", func() {
			_, err := ing.Content(ctx, "package main", "cmd/app/main.go")
			Expect(err).NotTo(HaveOccurred())

			points := store.Upserts[vector.CollectionCodebase]
			Expect(points).To(HaveLen(1))
			Expect(points[0].Payload["filePath"]).To(Equal("cmd/app/main.go"))
		})

		It("discards embeddings of unexpected length", func() {
			embedder.Embeddings["package main"] = []float32{0.1, 0.2}

			chunks, err := ing.Content(ctx, "package main", "short.go")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeZero())
			Expect(store.Upserts[vector.CollectionCodebase]).To(BeEmpty())
		})

		It("assigns a distinct ID to each point", func() {
			var sb strings.Builder
			for n := 1; n <= 80; n++ {
				fmt.Fprintf(&sb, "line %d\n", n)
			}

			_, err := ing.Content(ctx, sb.String(), "two.go")
			Expect(err).NotTo(HaveOccurred())

			points := store.Upserts[vector.CollectionCodebase]
			Expect(points).To(HaveLen(2))
			Expect(points[0].ID).NotTo(Equal(points[1].ID))
		})

		It("propagates embedding failures", func() {
			embedder.FailOn = "package main"

			_, err := ing.Content(ctx, "package main", "fail.go")
			Expect(err).To(HaveOccurred())
			Expect(store.Upserts[vector.CollectionCodebase]).To(BeEmpty())
		})

		It("propagates upsert failures", func() {
			store.FailUpsert = true

			_, err := ing.Content(ctx, "package main", "fail.go")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Repo", func() {
		It("ingests allowed files and skips everything else", func() {
			writeFile(source.root, "main.go", "package main")
			writeFile(source.root, "docs/README.md", "# Widgets")
			writeFile(source.root, "bin/tool.exe", "binary")
			writeFile(source.root, ".git/config", "[core]")

			report, err := ing.Repo(ctx, "https://github.com/acme/widgets.git")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Files).To(Equal(2))
			Expect(report.Chunks).To(Equal(2))
			Expect(report.Failures).To(BeEmpty())

			var paths []string
			for _, p := range store.Upserts[vector.CollectionCodebase] {
				paths = append(paths, p.Payload["filePath"].(string))
			}
			Expect(paths).To(ConsistOf("main.go", "docs/README.md"))
		})

		It("continues past per-file failures and reports them", func() {
			writeFile(source.root, "good.go", "package good")
			writeFile(source.root, "bad.go", "package bad")
			embedder.FailOn = "package bad"

			report, err := ing.Repo(ctx, "https://github.com/acme/widgets.git")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Files).To(Equal(1))
			Expect(report.Failures).To(HaveLen(1))
			Expect(report.Failures[0].Path).To(Equal("bad.go"))
		})

		It("publishes a repo ingested event", func() {
			writeFile(source.root, "main.go", "package main")

			_, err := ing.Repo(ctx, "https://github.com/acme/widgets.git")
			Expect(err).NotTo(HaveOccurred())

			Expect(events.Events).To(HaveLen(1))
			event := events.Events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeRepoIngested))
			Expect(event.Ingest).NotTo(BeNil())
			Expect(event.Ingest.RepoURL).To(Equal("https://github.com/acme/widgets.git"))
			Expect(event.Ingest.Files).To(Equal(1))
		})

		It("fails when the clone fails", func() {
			source.cloneErr = fmt.Errorf("remote unreachable")

			_, err := ing.Repo(ctx, "https://github.com/acme/widgets.git")
			Expect(err).To(HaveOccurred())
			Expect(events.Events).To(BeEmpty())
		})
	})

	Describe("File", func() {
		It("ingests a file from disk under its logical path", func() {
			path := filepath.Join(GinkgoT().TempDir(), "upload.ts")
			Expect(os.WriteFile(path, []byte("export const x = 1;"), 0o644)).To(Succeed())

			chunks, err := ing.File(ctx, path, "src/upload.ts")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(Equal(1))
			Expect(store.Upserts[vector.CollectionCodebase][0].Payload["filePath"]).To(Equal("src/upload.ts"))
		})

		It("fails for a missing file", func() {
			_, err := ing.File(ctx, "/nonexistent/file.go", "file.go")
			Expect(err).To(HaveOccurred())
		})
	})
})
