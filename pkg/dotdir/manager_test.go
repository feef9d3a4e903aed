package dotdir_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/dotdir"
)

func TestDotdir(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dotdir Suite")
}

var _ = Describe("Manager", func() {
	var m *dotdir.Manager

	BeforeEach(func() {
		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("uses the override directory when provided", func() {
			override := filepath.Join(GinkgoT().TempDir(), "custom")

			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(HaveSuffix("custom"))

			info, err := os.Stat(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("creates the override directory if missing", func() {
			override := filepath.Join(GinkgoT().TempDir(), "a", "b", "c")

			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(target)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns an absolute path", func() {
			override := filepath.Join(GinkgoT().TempDir(), "rel")

			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.IsAbs(target)).To(BeTrue())
		})
	})

	Describe("Subdir", func() {
		It("creates the named subdirectory under the target", func() {
			override := GinkgoT().TempDir()

			dir, err := m.Subdir(override, "repos")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(override, "repos")))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("is idempotent", func() {
			override := GinkgoT().TempDir()

			first, err := m.Subdir(override, "uploads")
			Expect(err).NotTo(HaveOccurred())
			second, err := m.Subdir(override, "uploads")
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(second))
		})
	})
})
