package gitrepo_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/gitrepo"
)

func TestGitRepo(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GitRepo Suite")
}

var _ = Describe("RepoName", func() {
	It("derives the directory name from a repository URL", func() {
		Expect(gitrepo.RepoName("https://github.com/acme/widgets.git")).To(Equal("widgets"))
		Expect(gitrepo.RepoName("https://github.com/acme/widgets")).To(Equal("widgets"))
		Expect(gitrepo.RepoName("widgets")).To(Equal("widgets"))
	})
})

var _ = Describe("WalkFiles", func() {
	It("lists regular files recursively, skipping directories", func() {
		root := GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(root, "src", "deep"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "src", "deep", "util.go"), []byte("package deep"), 0o644)).To(Succeed())

		client := gitrepo.New(root, zap.NewNop())
		files, err := client.WalkFiles(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(ConsistOf(
			filepath.Join(root, "main.go"),
			filepath.Join(root, "src", "deep", "util.go"),
		))
	})
})

var _ = Describe("LocalPath", func() {
	It("joins the clone root with the repository name", func() {
		client := gitrepo.New("repos", zap.NewNop())
		Expect(client.LocalPath("widgets")).To(Equal(filepath.Join("repos", "widgets")))
	})
})
